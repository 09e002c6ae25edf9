// Package apiclient is the authenticated HTTP client for the ticket API:
// bearer-token attachment, a fixed per-request deadline, centralized 401
// handling, and bounded retry with backoff for transient failures.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/credentials"
	"github.com/stacyposk/logiccart-change-hub/internal/ioutil"
	"github.com/stacyposk/logiccart-change-hub/internal/log"
	"golang.org/x/sync/singleflight"
)

// Request describes one call to the ticket API.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Authenticated attaches the bearer credential and enables the 401
	// path. Calls to pre-signed storage URLs must never set this.
	Authenticated bool
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int

	// OnAuthExpired runs once per credential wipe, however many in-flight
	// requests observed the same 401. The server layer uses it to clear the
	// session cookie and issue the re-authentication redirect.
	OnAuthExpired func(sessionID string)
}

// Client performs API calls on behalf of a session.
type Client struct {
	http        *http.Client
	baseURL     string
	creds       credentials.Store
	timeout     time.Duration
	maxAttempts int

	onAuthExpired func(sessionID string)
	wipes         singleflight.Group

	newSchedule func() *Schedule
	sleep       func(context.Context, time.Duration) error
	now         func() time.Time
}

// New creates a Client over the given credential store.
func New(creds credentials.Store, opts Options) *Client {
	onAuthExpired := opts.OnAuthExpired
	if onAuthExpired == nil {
		onAuthExpired = func(string) {}
	}
	return &Client{
		http:          &http.Client{},
		baseURL:       strings.TrimSuffix(opts.BaseURL, "/"),
		creds:         creds,
		timeout:       opts.Timeout,
		maxAttempts:   opts.MaxAttempts,
		onAuthExpired: onAuthExpired,
		newSchedule:   NewSchedule,
		sleep:         sleepContext,
		now:           time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do performs the request, decoding a 2xx JSON body into out when out is
// non-nil. Transient failures (network, timeout, 5xx) are retried with
// backoff up to the attempt ceiling; 4xx failures are surfaced immediately.
// A 401, or a token set already past its deadline, wipes the session's
// credentials and returns ErrAuthRequired.
func (c *Client) Do(ctx context.Context, sessionID string, req Request, out any) error {
	var bearer string
	if req.Authenticated {
		tokens, ok := c.creds.Get(sessionID)
		if !ok || tokens.Expired(c.now()) {
			// Sending a doomed request helps nobody; invalidate up front.
			c.invalidate(sessionID)
			return fmt.Errorf("credentials missing or expired: %w", ErrAuthRequired)
		}
		bearer = tokens.IDToken
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	schedule := c.newSchedule()
	var lastErr error

	for attempt := 1; ; attempt++ {
		class, apiErr, err := c.attempt(ctx, req.Method, target, bearer, body, out)
		if class == ClassNone {
			return nil
		}

		if class == ClassAuth {
			c.invalidate(sessionID)
			return fmt.Errorf("api returned 401: %w", ErrAuthRequired)
		}

		lastErr = err
		if lastErr == nil && apiErr != nil {
			lastErr = apiErr
		}

		if !ShouldRetry(attempt, c.maxAttempts, class) {
			return lastErr
		}

		delay := schedule.Next()
		log.LogWarnWithFields("apiclient", "Retrying request", map[string]any{
			"method":  req.Method,
			"path":    req.Path,
			"attempt": attempt,
			"class":   class.String(),
			"delay":   delay.String(),
		})
		if err := c.sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
}

// attempt performs a single HTTP exchange. It returns the failure class, a
// structured API error for non-2xx responses, and any transport error.
func (c *Client) attempt(ctx context.Context, method, target, bearer string, body []byte, out any) (Class, *APIError, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, method, target, reader)
	if err != nil {
		return ClassNetwork, nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return ClassTimeout, nil, fmt.Errorf("%s %s: %w", method, target, ErrTimeout)
		}
		return ClassNetwork, nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	class := Classify(resp.StatusCode, nil)
	if class != ClassNone {
		return class, parseAPIError(resp), nil
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return ClassNetwork, nil, fmt.Errorf("decoding response: %w", err)
		}
	}
	return ClassNone, nil, nil
}

// errorBody is the backend's uniform error shape.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseAPIError(resp *http.Response) *APIError {
	raw := ioutil.ReadLimited(resp.Body, 4096)
	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(raw)}
	var parsed errorBody
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil && parsed.Error != "" {
		apiErr.Code = parsed.Error
		apiErr.Message = parsed.Message
	}
	return apiErr
}

// invalidate wipes the session's credentials and fires OnAuthExpired exactly
// once, even when several in-flight requests hit the same 401.
func (c *Client) invalidate(sessionID string) {
	_, _, _ = c.wipes.Do(sessionID, func() (any, error) {
		c.creds.Clear(sessionID)
		c.onAuthExpired(sessionID)
		log.LogInfoWithFields("apiclient", "Credentials invalidated", nil)
		return nil, nil
	})
}
