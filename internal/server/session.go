package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/stacyposk/logiccart-change-hub/internal/cookie"
)

// ensureSessionID returns the request's session id, minting one when the
// browser arrives without it. The id is opaque: it only keys the in-memory
// flow and credential stores.
func ensureSessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	if sid, err := cookie.SessionID(r); err == nil && sid != "" {
		return sid, nil
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	sid := hex.EncodeToString(b)
	cookie.SetSessionID(w, sid)
	return sid, nil
}
