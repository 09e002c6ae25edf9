package authflow

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/credentials"
	"github.com/stacyposk/logiccart-change-hub/internal/log"
	"golang.org/x/oauth2"
)

// Status is the callback state machine. Every invocation starts at
// StatusProcessing and ends at exactly one of StatusSuccess or StatusError;
// there is no retry transition.
type Status int

const (
	StatusProcessing Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusProcessing:
		return "processing"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of one callback invocation.
type Result struct {
	Status Status
	// Next is the validated post-login destination. Set on success only.
	Next string
	// Reason is a short operator-facing description of why the flow failed.
	// Deliberately uniform for integrity failures so the response does not
	// leak which check tripped.
	Reason string
	// TokenTTL is the lifetime of the stored token set. Set on success only.
	TokenTTL time.Duration
}

// Callback completes the handshake once the provider redirects back.
type Callback struct {
	oauth           oauth2.Config
	flows           *FlowStore
	creds           credentials.Store
	exchangeTimeout time.Duration
	now             func() time.Time
}

// NewCallback creates a callback handler. The oauth config must carry the
// byte-identical redirect URI used by the initiator.
func NewCallback(oauth oauth2.Config, flows *FlowStore, creds credentials.Store, exchangeTimeout time.Duration) *Callback {
	return &Callback{
		oauth:           oauth,
		flows:           flows,
		creds:           creds,
		exchangeTimeout: exchangeTimeout,
		now:             time.Now,
	}
}

const integrityReason = "authorization response failed validation"

// Complete runs the callback algorithm over the provider's query parameters.
// Flow state is consumed exactly once regardless of outcome, so replaying
// the same callback URL fails the state-match check instead of re-exchanging
// the code. Failures are terminal; the caller renders a manual retry.
func (c *Callback) Complete(ctx context.Context, sessionID string, query url.Values) Result {
	// Flow state is one-shot: consume it up front, success or failure.
	flow, haveFlow := c.flows.Take(sessionID)

	if errParam := query.Get("error"); errParam != "" {
		log.LogWarnWithFields("authflow", "Provider denied authorization", map[string]any{
			"error":             errParam,
			"error_description": query.Get("error_description"),
		})
		return Result{Status: StatusError, Reason: "the identity provider denied the request"}
	}

	st := DecodeState(query.Get("state"))
	code := query.Get("code")

	valid := code != "" &&
		st.Nonce != "" &&
		haveFlow &&
		st.Nonce == flow.Nonce &&
		flow.Verifier != ""
	if !valid {
		log.LogWarnWithFields("authflow", "Callback rejected", map[string]any{
			"have_code":  code != "",
			"have_state": st.Nonce != "",
			"have_flow":  haveFlow,
		})
		return Result{Status: StatusError, Reason: integrityReason}
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, c.exchangeTimeout)
	defer cancel()

	token, err := c.oauth.Exchange(exchangeCtx, code, oauth2.VerifierOption(flow.Verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			log.LogErrorWithFields("authflow", "Token exchange rejected", map[string]any{
				"status": retrieveErr.Response.StatusCode,
			})
		} else {
			log.LogError("Token exchange failed: %v", err)
		}
		return Result{Status: StatusError, Reason: "could not complete sign-in"}
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		log.LogError("Token response carried no id_token")
		return Result{Status: StatusError, Reason: "could not complete sign-in"}
	}

	now := c.now()
	ttl := token.Expiry.Sub(now)
	c.creds.Set(sessionID, credentials.TokenSet{
		IDToken:     idToken,
		AccessToken: token.AccessToken,
		ExpiresAt:   token.Expiry.UnixMilli(),
	})

	log.LogInfoWithFields("authflow", "Handshake completed", map[string]any{
		"token_ttl": ttl.Round(time.Second).String(),
	})

	return Result{
		Status:   StatusSuccess,
		Next:     SanitizeNext(st.Next),
		TokenTTL: ttl,
	}
}
