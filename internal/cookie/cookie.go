// Package cookie centralizes the two cookies change-hub sets: the opaque
// session id (HttpOnly, application-only) and the boolean session flag read
// by the CDN edge for coarse routing. The flag never carries token material;
// application code re-checks token validity on every call.
package cookie

import (
	"net/http"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/envutil"
	"github.com/stacyposk/logiccart-change-hub/internal/log"
)

const (
	// SessionIDCookie keys the per-session credential and flow state.
	SessionIDCookie = "hub_sid"

	// SessionFlagCookie is the edge-visible signed-in marker.
	SessionFlagCookie = "hub_session"
)

// SetSessionID sets the opaque session id cookie for the browser session.
func SetSessionID(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionIDCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSessionFlag sets the boolean session marker with the same lifetime as
// the token set.
func SetSessionFlag(w http.ResponseWriter, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionFlagCookie,
		Value:    "1",
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogDebugWithFields("cookie", "Session flag set", map[string]any{
		"maxAge": maxAge.String(),
		"secure": secure,
	})
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// ClearSessionFlag removes the edge-visible session marker.
func ClearSessionFlag(w http.ResponseWriter) {
	Clear(w, SessionFlagCookie)
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// SessionID retrieves the session id cookie value.
func SessionID(r *http.Request) (string, error) {
	return Get(r, SessionIDCookie)
}
