package credentials

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the display identity carried in the provider's id_token.
// It is extracted without signature verification and used only to label the
// UI; authorization decisions always go through the backend, which validates
// the token itself.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type idTokenClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"cognito:username"`
	jwt.RegisteredClaims
}

// ParseIdentity extracts the display identity from an id_token.
func ParseIdentity(idToken string) (Identity, error) {
	var claims idTokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, &claims); err != nil {
		return Identity{}, fmt.Errorf("parsing id_token: %w", err)
	}

	name := claims.Name
	if name == "" {
		name = claims.Username
	}
	if name == "" && claims.Email != "" {
		name = strings.SplitN(claims.Email, "@", 2)[0]
	}

	return Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    name,
	}, nil
}
