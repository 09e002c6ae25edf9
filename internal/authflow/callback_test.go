package authflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenEndpoint counts exchange attempts and records the last form body.
type fakeTokenEndpoint struct {
	server   *httptest.Server
	hits     atomic.Int32
	lastForm url.Values
	status   int
	response map[string]any
}

func newFakeTokenEndpoint(t *testing.T) *fakeTokenEndpoint {
	t.Helper()
	f := &fakeTokenEndpoint{
		status: http.StatusOK,
		response: map[string]any{
			"access_token": "a",
			"id_token":     "b",
			"token_type":   "Bearer",
			"expires_in":   3600,
		},
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		require.NoError(t, r.ParseForm())
		f.lastForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_ = json.NewEncoder(w).Encode(f.response)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestCallback(t *testing.T, endpoint *fakeTokenEndpoint) (*Callback, *FlowStore, *credentials.MemoryStore) {
	t.Helper()
	flows := NewFlowStore()
	creds := credentials.NewMemoryStore()
	cb := NewCallback(testOAuthConfig(endpoint.server.URL), flows, creds, 5*time.Second)
	return cb, flows, creds
}

func callbackQuery(code, state string) url.Values {
	q := url.Values{}
	if code != "" {
		q.Set("code", code)
	}
	if state != "" {
		q.Set("state", state)
	}
	return q
}

func TestCallbackSuccess(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	cb, flows, creds := newTestCallback(t, endpoint)

	flows.Put("sid", FlowState{Verifier: "test-verifier", Nonce: "nonce-1"})
	state, err := EncodeState("nonce-1", "/dashboard")
	require.NoError(t, err)

	before := time.Now().UnixMilli()
	result := cb.Complete(context.Background(), "sid", callbackQuery("auth-code", state))
	after := time.Now().UnixMilli()

	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "/dashboard", result.Next)
	assert.Equal(t, int32(1), endpoint.hits.Load())

	// Exchange carried the PKCE verifier and exact redirect URI, no secret
	assert.Equal(t, "authorization_code", endpoint.lastForm.Get("grant_type"))
	assert.Equal(t, "client-123", endpoint.lastForm.Get("client_id"))
	assert.Equal(t, "auth-code", endpoint.lastForm.Get("code"))
	assert.Equal(t, "test-verifier", endpoint.lastForm.Get("code_verifier"))
	assert.Equal(t, "https://changes.logicart.com/oauth/callback", endpoint.lastForm.Get("redirect_uri"))
	assert.Empty(t, endpoint.lastForm.Get("client_secret"))

	// Tokens stored with expires_at = capture time + expires_in
	tokens, ok := creds.Get("sid")
	require.True(t, ok)
	assert.Equal(t, "b", tokens.IDToken)
	assert.Equal(t, "a", tokens.AccessToken)
	assert.GreaterOrEqual(t, tokens.ExpiresAt, before+3_600_000)
	assert.LessOrEqual(t, tokens.ExpiresAt, after+3_600_000+1000)

	// Flow state consumed: replaying the same callback URL fails the
	// state-match check without another exchange
	replay := cb.Complete(context.Background(), "sid", callbackQuery("auth-code", state))
	assert.Equal(t, StatusError, replay.Status)
	assert.Equal(t, int32(1), endpoint.hits.Load())
}

func TestCallbackProviderDenial(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	cb, flows, creds := newTestCallback(t, endpoint)

	flows.Put("sid", FlowState{Verifier: "v", Nonce: "n"})

	q := url.Values{}
	q.Set("error", "access_denied")
	q.Set("error_description", "user cancelled")
	q.Set("code", "should-never-be-read")

	result := cb.Complete(context.Background(), "sid", q)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, int32(0), endpoint.hits.Load())
	_, ok := creds.Get("sid")
	assert.False(t, ok)

	// Denial still consumed the one-time flow state
	_, ok = flows.Take("sid")
	assert.False(t, ok)
}

func TestCallbackIntegrityChecks(t *testing.T) {
	state := func(nonce string) string {
		s, err := EncodeState(nonce, "/dashboard")
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name  string
		flow  *FlowState
		query url.Values
	}{
		{
			name:  "missing code",
			flow:  &FlowState{Verifier: "v", Nonce: "n"},
			query: callbackQuery("", state("n")),
		},
		{
			name:  "missing state",
			flow:  &FlowState{Verifier: "v", Nonce: "n"},
			query: callbackQuery("code", ""),
		},
		{
			name:  "undecodable state",
			flow:  &FlowState{Verifier: "v", Nonce: "n"},
			query: callbackQuery("code", "not-json"),
		},
		{
			name:  "state nonce mismatch",
			flow:  &FlowState{Verifier: "v", Nonce: "n"},
			query: callbackQuery("code", state("other")),
		},
		{
			name:  "no pending flow",
			flow:  nil,
			query: callbackQuery("code", state("n")),
		},
		{
			name:  "missing verifier",
			flow:  &FlowState{Verifier: "", Nonce: "n"},
			query: callbackQuery("code", state("n")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := newFakeTokenEndpoint(t)
			cb, flows, creds := newTestCallback(t, endpoint)
			if tt.flow != nil {
				flows.Put("sid", *tt.flow)
			}

			result := cb.Complete(context.Background(), "sid", tt.query)

			assert.Equal(t, StatusError, result.Status)
			assert.Equal(t, int32(0), endpoint.hits.Load(), "token endpoint must not be called")
			_, ok := creds.Get("sid")
			assert.False(t, ok)

			// Integrity failures all surface the same reason
			assert.Equal(t, integrityReason, result.Reason)
		})
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	endpoint.status = http.StatusBadRequest
	endpoint.response = map[string]any{"error": "invalid_grant"}
	cb, flows, creds := newTestCallback(t, endpoint)

	flows.Put("sid", FlowState{Verifier: "v", Nonce: "n"})
	state, err := EncodeState("n", "/dashboard")
	require.NoError(t, err)

	result := cb.Complete(context.Background(), "sid", callbackQuery("stale-code", state))

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, int32(1), endpoint.hits.Load(), "a failed exchange is terminal, never retried")
	_, ok := creds.Get("sid")
	assert.False(t, ok)
}

func TestCallbackMissingIDToken(t *testing.T) {
	endpoint := newFakeTokenEndpoint(t)
	endpoint.response = map[string]any{
		"access_token": "a",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	cb, flows, creds := newTestCallback(t, endpoint)

	flows.Put("sid", FlowState{Verifier: "v", Nonce: "n"})
	state, err := EncodeState("n", "/dashboard")
	require.NoError(t, err)

	result := cb.Complete(context.Background(), "sid", callbackQuery("code", state))
	assert.Equal(t, StatusError, result.Status)
	_, ok := creds.Get("sid")
	assert.False(t, ok)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "processing", StatusProcessing.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "error", StatusError.String())
	assert.Equal(t, "unknown", Status(42).String())
}
