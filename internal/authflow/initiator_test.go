package authflow

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stacyposk/logiccart-change-hub/internal/pkce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testOAuthConfig(tokenURL string) oauth2.Config {
	return oauth2.Config{
		ClientID:    "client-123",
		RedirectURL: "https://changes.logicart.com/oauth/callback",
		Scopes:      []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://auth.logicart.com/oauth2/authorize",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestInitiatorBegin(t *testing.T) {
	flows := NewFlowStore()
	initiator := NewInitiator(testOAuthConfig("https://auth.logicart.com/oauth2/token"), flows)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login?next=%2Fdashboard", nil)
	initiator.Begin(rec, req, "sid-1", "/dashboard")

	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "auth.logicart.com", loc.Host)
	assert.Equal(t, "/oauth2/authorize", loc.Path)

	q := loc.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))

	// Redirect URI is the exact configured value, no decoration
	assert.Equal(t, "https://changes.logicart.com/oauth/callback", q.Get("redirect_uri"))

	// State decodes to {s, next} with the requested destination
	st := DecodeState(q.Get("state"))
	assert.Equal(t, "/dashboard", st.Next)
	assert.NotEmpty(t, st.Nonce)

	// Flow state was persisted and matches both wire values
	flow, ok := flows.Take("sid-1")
	require.True(t, ok)
	assert.Equal(t, st.Nonce, flow.Nonce)
	assert.Equal(t, pkce.Challenge(flow.Verifier), q.Get("code_challenge"))

	// Nonce and verifier are independent secrets
	assert.NotEqual(t, flow.Verifier, flow.Nonce)
}

func TestInitiatorBeginSanitizesNext(t *testing.T) {
	flows := NewFlowStore()
	initiator := NewInitiator(testOAuthConfig("https://auth.logicart.com/oauth2/token"), flows)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	initiator.Begin(rec, req, "sid-1", "https://evil.example.com/phish")

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	st := DecodeState(loc.Query().Get("state"))
	assert.Equal(t, DefaultNext, st.Next)
}

func TestInitiatorBeginFreshSecretsPerFlow(t *testing.T) {
	flows := NewFlowStore()
	initiator := NewInitiator(testOAuthConfig("https://auth.logicart.com/oauth2/token"), flows)

	begin := func() FlowState {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		initiator.Begin(rec, req, "sid-1", "/dashboard")
		flow, ok := flows.Take("sid-1")
		require.True(t, ok)
		return flow
	}

	first := begin()
	second := begin()
	assert.NotEqual(t, first.Verifier, second.Verifier)
	assert.NotEqual(t, first.Nonce, second.Nonce)
}
