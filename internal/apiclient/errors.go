package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// AuthRequiredMarker is the substring every authentication-required failure
// carries in its message. The error boundary middleware pattern-matches on
// it when an auth failure escapes normal error handling.
const AuthRequiredMarker = "AUTH_REQUIRED"

// ErrAuthRequired signals that the session has no usable credentials: the
// token set expired locally or the API answered 401. Callers should send the
// user back through the sign-in flow.
var ErrAuthRequired = errors.New(AuthRequiredMarker + ": authentication required")

// ErrTimeout signals that the request deadline elapsed before a response.
var ErrTimeout = errors.New("request timed out")

// APIError is a non-2xx response from the ticket API, carrying the HTTP
// status and the backend's error code when it supplied one.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Class buckets a failure for the retry policy.
type Class int

const (
	// ClassNone means the request did not fail.
	ClassNone Class = iota
	// ClassAuth is a 401 or a locally detected expiry. Never retried; the
	// session must re-authenticate.
	ClassAuth
	// ClassClient is any other 4xx. The request will not succeed unchanged.
	ClassClient
	// ClassServer is a 5xx. Transient by assumption.
	ClassServer
	// ClassNetwork is a transport failure before any response arrived.
	ClassNetwork
	// ClassTimeout is an elapsed request deadline.
	ClassTimeout
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassAuth:
		return "auth"
	case ClassClient:
		return "client"
	case ClassServer:
		return "server"
	case ClassNetwork:
		return "network"
	case ClassTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Classify buckets a response status or transport error.
func Classify(status int, err error) Class {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
			return ClassTimeout
		}
		return ClassNetwork
	}
	switch {
	case status == http.StatusUnauthorized:
		return ClassAuth
	case status >= 500:
		return ClassServer
	case status >= 400:
		return ClassClient
	default:
		return ClassNone
	}
}
