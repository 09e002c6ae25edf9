package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadClient(srv *httptest.Server) *Client {
	creds := credentials.NewMemoryStore()
	creds.Set("sid", validTokens())
	c := New(creds, Options{BaseURL: srv.URL, Timeout: 2 * time.Second, MaxAttempts: 3})
	return c
}

func TestUploadNeverAttachesAuthorization(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := uploadClient(srv)
	err := c.UploadToPresignedURL(context.Background(), srv.URL+"/bucket/key?X-Amz-Signature=abc", "image/png", []byte("png-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "", gotAuth.Load(), "bearer header would invalidate the pre-signed signature")
}

func TestUploadSetsContentType(t *testing.T) {
	var gotType atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType.Store(r.Header.Get("Content-Type"))
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := uploadClient(srv)
	require.NoError(t, c.UploadToPresignedURL(context.Background(), srv.URL+"/k", "image/jpeg", []byte("jpg")))
	assert.Equal(t, "image/jpeg", gotType.Load())
}

func TestUploadRetriesOnceOnServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := uploadClient(srv)
	err := c.UploadToPresignedURL(context.Background(), srv.URL+"/k", "image/png", []byte("png"))

	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load(), "uploads get exactly one retry")
}

func TestUploadDoesNotRetryRejectedSignature(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := uploadClient(srv)
	err := c.UploadToPresignedURL(context.Background(), srv.URL+"/k", "image/png", []byte("png"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, int32(1), hits.Load())
}
