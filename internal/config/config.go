package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// Config holds the environment-provided configuration for change-hub.
// The identity provider and the ticket API are deployed separately; all
// coordinates come from the environment.
type Config struct {
	Addr    string `env:"CHANGE_HUB_ADDR" envDefault:":8080"`
	BaseURL string `env:"CHANGE_HUB_BASE_URL"`

	// Identity provider (hosted OAuth2 authorization code + PKCE).
	AuthDomain  string `env:"AUTH_DOMAIN"`
	ClientID    string `env:"AUTH_CLIENT_ID"`
	RedirectURI string `env:"AUTH_REDIRECT_URI"`
	LogoutURI   string `env:"AUTH_LOGOUT_URI"`

	// Ticket API gateway.
	APIBaseURL string `env:"API_BASE_URL"`

	RequestTimeout  time.Duration `env:"API_REQUEST_TIMEOUT" envDefault:"10s"`
	MaxAttempts     int           `env:"API_MAX_ATTEMPTS" envDefault:"3"`
	SuccessRedirect time.Duration `env:"AUTH_SUCCESS_REDIRECT_DELAY" envDefault:"1200ms"`

	// Ops endpoint credentials. The password arrives pre-hashed with bcrypt
	// so the plaintext never touches the environment.
	OpsUser         string `env:"OPS_USER" envDefault:"ops"`
	OpsPasswordHash Secret `env:"OPS_PASSWORD_HASH"`
}

// Load parses the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the resolved configuration.
func Validate(cfg *Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("CHANGE_HUB_BASE_URL is required")
	}
	if cfg.AuthDomain == "" {
		return fmt.Errorf("AUTH_DOMAIN is required")
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("AUTH_CLIENT_ID is required")
	}
	if cfg.RedirectURI == "" {
		return fmt.Errorf("AUTH_REDIRECT_URI is required")
	}
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	// The provider matches redirect URIs byte for byte, so a query string
	// here would break the exchange no matter what the callback does.
	u, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return fmt.Errorf("AUTH_REDIRECT_URI is not a valid URL: %w", err)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("AUTH_REDIRECT_URI must not carry a query string")
	}
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("API_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("API_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// AuthorizeURL returns the provider's authorization endpoint.
func (c Config) AuthorizeURL() string {
	return strings.TrimSuffix(c.AuthDomain, "/") + "/oauth2/authorize"
}

// TokenURL returns the provider's token endpoint.
func (c Config) TokenURL() string {
	return strings.TrimSuffix(c.AuthDomain, "/") + "/oauth2/token"
}
