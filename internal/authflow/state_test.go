package authflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeState(t *testing.T) {
	raw, err := EncodeState("nonce-123", "/dashboard")
	require.NoError(t, err)

	st := DecodeState(raw)
	assert.Equal(t, "nonce-123", st.Nonce)
	assert.Equal(t, "/dashboard", st.Next)
}

func TestDecodeState(t *testing.T) {
	t.Run("garbage yields empty nonce", func(t *testing.T) {
		st := DecodeState("%%%not-json")
		assert.Empty(t, st.Nonce)
		assert.Empty(t, st.Next)
	})

	t.Run("empty input", func(t *testing.T) {
		st := DecodeState("")
		assert.Empty(t, st.Nonce)
	})

	t.Run("partial object", func(t *testing.T) {
		st := DecodeState(`{"s":"abc"}`)
		assert.Equal(t, "abc", st.Nonce)
		assert.Empty(t, st.Next)
	})
}

func TestSanitizeNext(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"absolute path passes", "/dashboard", "/dashboard"},
		{"nested path passes", "/tickets/123", "/tickets/123"},
		{"empty falls back", "", DefaultNext},
		{"external URL falls back", "https://evil.example.com", DefaultNext},
		{"protocol-relative falls back", "//evil.example.com", DefaultNext},
		{"relative path falls back", "dashboard", DefaultNext},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeNext(tt.in))
		})
	}
}

func TestFlowStore(t *testing.T) {
	t.Run("take consumes", func(t *testing.T) {
		store := NewFlowStore()
		store.Put("sid", FlowState{Verifier: "v", Nonce: "n"})

		state, ok := store.Take("sid")
		require.True(t, ok)
		assert.Equal(t, "v", state.Verifier)
		assert.Equal(t, "n", state.Nonce)

		_, ok = store.Take("sid")
		assert.False(t, ok)
	})

	t.Run("put replaces pending flow", func(t *testing.T) {
		store := NewFlowStore()
		store.Put("sid", FlowState{Verifier: "old", Nonce: "old"})
		store.Put("sid", FlowState{Verifier: "new", Nonce: "new"})

		state, ok := store.Take("sid")
		require.True(t, ok)
		assert.Equal(t, "new", state.Verifier)
	})
}
