package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/apiclient"
	"github.com/stacyposk/logiccart-change-hub/internal/config"
	"github.com/stacyposk/logiccart-change-hub/internal/cookie"
	"github.com/stacyposk/logiccart-change-hub/internal/credentials"
	jsonwriter "github.com/stacyposk/logiccart-change-hub/internal/json"
	"github.com/stacyposk/logiccart-change-hub/internal/log"
	"golang.org/x/crypto/bcrypt"
)

// MiddlewareFunc is a function that wraps an http.Handler
type MiddlewareFunc func(http.Handler) http.Handler

// ChainMiddleware chains multiple middleware functions
func ChainMiddleware(h http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for _, mw := range middlewares {
		h = mw(h)
	}
	return h
}

// responseWriterDelegator wraps http.ResponseWriter to capture status and
// bytes written while delegating optional interfaces through Unwrap
type responseWriterDelegator struct {
	http.ResponseWriter
	status      int
	written     int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriterDelegator {
	return &responseWriterDelegator{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

func (r *responseWriterDelegator) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseWriterDelegator) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter for interface detection
func (r *responseWriterDelegator) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// NewRequestLogMiddleware logs each request with status and duration.
func NewRequestLogMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			delegator := wrapResponseWriter(w)
			next.ServeHTTP(delegator, r)
			log.LogDebugWithFields("http", "Request handled", map[string]any{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   delegator.status,
				"bytes":    delegator.written,
				"duration": time.Since(start).String(),
			})
		})
	}
}

// NewRecoveryMiddleware is the session/error boundary: a safety net under
// every handler. A panic whose message carries the auth-required marker
// wipes the session's credentials and cookies and shows the "session
// expired" page with a delayed redirect into the sign-in flow; anything
// else gets a generic recoverable error page with a manual reload. Primary
// auth enforcement lives in the API client; this only catches what escapes.
func NewRecoveryMiddleware(creds credentials.Store, redirectDelay time.Duration) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				msg := panicMessage(rec)
				if strings.Contains(msg, apiclient.AuthRequiredMarker) {
					if sid, err := cookie.SessionID(r); err == nil && sid != "" {
						creds.Clear(sid)
					}
					cookie.ClearSessionFlag(w)
					cookie.Clear(w, cookie.SessionIDCookie)
					log.LogWarnWithFields("boundary", "Auth failure escaped a handler", map[string]any{
						"path": r.URL.Path,
					})
					renderPage(w, http.StatusUnauthorized, "session_expired", map[string]any{
						"Title":      "Session expired",
						"Refresh":    refreshSeconds(redirectDelay),
						"RefreshURL": "/login",
					})
					return
				}

				log.LogErrorWithFields("boundary", "Handler panicked", map[string]any{
					"path":  r.URL.Path,
					"panic": msg,
				})
				renderPage(w, http.StatusInternalServerError, "server_error", map[string]any{
					"Title": "Error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func panicMessage(rec any) string {
	switch v := rec.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return "unknown panic"
	}
}

// NewOpsAuthMiddleware guards operational endpoints with basic auth. The
// password is configured as a bcrypt hash.
func NewOpsAuthMiddleware(cfg config.Config) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.OpsPasswordHash == "" {
				jsonwriter.WriteError(w, http.StatusNotFound, "not_found", "Not found")
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(cfg.OpsUser)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(cfg.OpsPasswordHash), []byte(pass)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="change-hub ops"`)
				jsonwriter.WriteUnauthorized(w, "Invalid credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
