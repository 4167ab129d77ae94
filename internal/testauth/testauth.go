// Package testauth mints bearer tokens for tests, the CLI and local development.
// It must never be wired into a production auth path.
//
// Two flavours are provided:
//   - local HS256 tokens accepted by auth.LocalIssuer (AUTH_MODE=local)
//   - RS256 tokens served through an in-process JWKS endpoint, for exercising
//     auth.JWKSVerifier the same way the identity provider would
package testauth

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/courserate-sg/server/internal/auth"
)

// AuthMode determines how to authenticate requests.
type AuthMode string

const (
	// AuthModeLocal signs HS256 tokens with the local development secret
	AuthModeLocal AuthMode = "local"
	// AuthModeNone disables authentication
	AuthModeNone AuthMode = "none"
)

const (
	// DevSecret matches the .env default for AUTH_LOCAL_SECRET.
	DevSecret = "courserate_dev_secret_change_me_in_production"
	DevIssuer = "courserate-local"
	DevUserID = "test-user"
)

// TestAuthenticator adds authentication to HTTP requests.
type TestAuthenticator struct {
	mode  AuthMode
	token string
}

// Config configures the test authenticator.
type Config struct {
	Mode AuthMode

	// Secret signs local tokens. Defaults to AUTH_LOCAL_SECRET, then DevSecret.
	Secret string

	// Issuer defaults to AUTH_LOCAL_ISSUER, then DevIssuer.
	Issuer string

	// User is the identity carried by the token. UserID defaults to DevUserID.
	User auth.User

	TTL time.Duration
}

// NewTestAuthenticator creates a new test authenticator with the given config.
func NewTestAuthenticator(cfg Config) (*TestAuthenticator, error) {
	if cfg.Mode == "" {
		cfg.Mode = AuthModeLocal
	}

	switch cfg.Mode {
	case AuthModeLocal:
		token, _, err := LocalToken(cfg)
		if err != nil {
			return nil, err
		}
		return &TestAuthenticator{mode: cfg.Mode, token: token}, nil
	case AuthModeNone:
		return &TestAuthenticator{mode: cfg.Mode}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", cfg.Mode)
	}
}

// AddAuth adds the Authorization header to req.
func (ta *TestAuthenticator) AddAuth(req *http.Request) {
	if req == nil {
		return
	}
	if header := ta.GetAuthHeader(); header != "" {
		req.Header.Set("Authorization", header)
	}
}

// GetAuthHeader returns the Authorization header value without modifying a request.
func (ta *TestAuthenticator) GetAuthHeader() string {
	if ta.mode == AuthModeLocal {
		return "Bearer " + ta.token
	}
	return ""
}

// NewDevAuthenticator creates a local authenticator for userID using dev defaults.
func NewDevAuthenticator(userID string) (*TestAuthenticator, error) {
	return NewTestAuthenticator(Config{Mode: AuthModeLocal, User: auth.User{UserID: userID}})
}

// LocalToken signs a token accepted by an auth.LocalIssuer with the same secret and issuer.
func LocalToken(cfg Config) (string, time.Time, error) {
	secret := firstNonEmpty(cfg.Secret, os.Getenv("AUTH_LOCAL_SECRET"), DevSecret)
	issuerName := firstNonEmpty(cfg.Issuer, os.Getenv("AUTH_LOCAL_ISSUER"), DevIssuer)

	user := cfg.User
	if user.UserID == "" {
		user.UserID = DevUserID
	}

	issuer, err := auth.NewLocalIssuer(secret, cfg.TTL, issuerName)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := issuer.Generate(user, cfg.TTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return token, expiresAt, nil
}

// NewLocalVerifier returns the verifier matching LocalToken's dev defaults.
func NewLocalVerifier() *auth.LocalIssuer {
	issuer, err := auth.NewLocalIssuer(DevSecret, 24*time.Hour, DevIssuer)
	if err != nil {
		panic(err)
	}
	return issuer
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
