// Package authflow implements the two halves of the authorization code +
// PKCE handshake against the hosted identity provider: the initiator, which
// builds the authorization redirect, and the callback, which validates the
// returned state and exchanges the code for tokens. This is a public client;
// the PKCE verifier substitutes for a client secret.
package authflow

import (
	"net/http"

	"github.com/stacyposk/logiccart-change-hub/internal/log"
	"github.com/stacyposk/logiccart-change-hub/internal/pkce"
	"golang.org/x/oauth2"
)

// OAuthConfig builds the provider configuration shared by the initiator and
// the callback. The client is public: no secret, client_id travels in the
// token request body, and the redirect URI is matched exactly by the
// provider, so it must never be decorated.
func OAuthConfig(clientID, authorizeURL, tokenURL, redirectURI string) oauth2.Config {
	return oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   authorizeURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Initiator begins the handshake: it generates the PKCE pair and the state
// nonce, persists them as one-time flow state, and hands the browser to the
// provider with a full navigational redirect.
type Initiator struct {
	oauth oauth2.Config
	flows *FlowStore
}

// NewInitiator creates an initiator bound to one provider and one exact
// redirect target.
func NewInitiator(oauth oauth2.Config, flows *FlowStore) *Initiator {
	return &Initiator{oauth: oauth, flows: flows}
}

// Begin starts a fresh handshake for the session, targeting next after the
// flow completes. The response is always a 302: to the provider on success,
// or to the application root if secret generation is unavailable (never a
// loop back into the flow).
func (i *Initiator) Begin(w http.ResponseWriter, r *http.Request, sessionID, next string) {
	verifier, err := pkce.NewVerifier()
	if err != nil {
		log.LogError("Cannot generate PKCE verifier: %v", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	nonce, err := pkce.NewStateNonce()
	if err != nil {
		log.LogError("Cannot generate state nonce: %v", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	state, err := EncodeState(nonce, SanitizeNext(next))
	if err != nil {
		log.LogError("Cannot encode state parameter: %v", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	i.flows.Put(sessionID, FlowState{Verifier: verifier, Nonce: nonce})

	authURL := i.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	log.LogDebugWithFields("authflow", "Handshake started", map[string]any{
		"next": SanitizeNext(next),
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}
