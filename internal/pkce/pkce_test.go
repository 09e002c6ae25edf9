package pkce

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerifier(t *testing.T) {
	v1, err := NewVerifier()
	require.NoError(t, err)
	assert.NotEmpty(t, v1)

	// 32 bytes of entropy, unpadded URL-safe base64
	raw, err := base64.RawURLEncoding.DecodeString(v1)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
	assert.NotContains(t, v1, "=")

	v2, err := NewVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}

func TestNewStateNonce(t *testing.T) {
	n1, err := NewStateNonce()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(n1)
	require.NoError(t, err)
	assert.Len(t, raw, 16)

	n2, err := NewStateNonce()
	require.NoError(t, err)
	assert.NotEqual(t, n1, n2)
}

func TestChallenge(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		v, err := NewVerifier()
		require.NoError(t, err)
		assert.Equal(t, Challenge(v), Challenge(v))
	})

	t.Run("distinct verifiers yield distinct challenges", func(t *testing.T) {
		v1, err := NewVerifier()
		require.NoError(t, err)
		v2, err := NewVerifier()
		require.NoError(t, err)
		assert.NotEqual(t, Challenge(v1), Challenge(v2))
	})

	t.Run("RFC 7636 Appendix B test vector", func(t *testing.T) {
		verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
		assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", Challenge(verifier))
	})
}
