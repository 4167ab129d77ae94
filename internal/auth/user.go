package auth

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// User is the identity extracted from a verified token.
type User struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Username      string `json:"username,omitempty"`
}

// Claims covers both identity-provider tokens and locally issued ones.
type Claims struct {
	Email         string   `json:"email,omitempty"`
	Name          string   `json:"name,omitempty"`
	EmailVerified flexBool `json:"email_verified,omitempty"`
	Username      string   `json:"cognito:username,omitempty"`
	ClientID      string   `json:"client_id,omitempty"`
	TokenUse      string   `json:"token_use,omitempty"`
	jwt.RegisteredClaims
}

// User maps claims to a User. Name and Username fall back to Email.
func (c *Claims) User() (*User, error) {
	if c.Subject == "" {
		return nil, invalidTokenError("missing user ID", nil)
	}
	user := &User{
		UserID:        c.Subject,
		Email:         c.Email,
		Name:          c.Name,
		EmailVerified: bool(c.EmailVerified),
		Username:      c.Username,
	}
	if user.Name == "" {
		user.Name = c.Email
	}
	if user.Username == "" {
		user.Username = c.Email
	}
	return user, nil
}

// audienceMatches accepts ID tokens (aud) and access tokens (client_id).
func (c *Claims) audienceMatches(clientID string) bool {
	if clientID == "" {
		return true
	}
	return slices.Contains(c.Audience, clientID) || c.ClientID == clientID
}

// flexBool accepts both JSON booleans and the string form some providers emit.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b = flexBool(parsed)
	return nil
}

// Verifier validates a bearer token and returns its user.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}
