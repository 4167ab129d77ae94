package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minLocalSecretLength = 32

// LocalIssuer signs and verifies HS256 tokens for development and tests, standing in
// for the external identity provider when AUTH_MODE=local.
type LocalIssuer struct {
	secret   []byte
	expiry   time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

func NewLocalIssuer(secret string, expiry time.Duration, issuer string) (*LocalIssuer, error) {
	if len(secret) < minLocalSecretLength {
		return nil, errors.New("local auth secret must be at least 32 characters")
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &LocalIssuer{
		secret:   []byte(secret),
		expiry:   expiry,
		issuer:   issuer,
		audience: issuer,
		now:      time.Now,
	}, nil
}

// Generate signs a token for user. ttl overrides the default expiry when positive.
func (m *LocalIssuer) Generate(user User, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(user.UserID) == "" {
		return "", time.Time{}, errors.New("user ID is required")
	}
	if ttl <= 0 {
		ttl = m.expiry
	}

	now := m.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Email:         user.Email,
		Name:          user.Name,
		EmailVerified: flexBool(user.EmailVerified),
		Username:      user.Username,
		TokenUse:      "id",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.UserID,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *LocalIssuer) Verify(_ context.Context, tokenString string) (*User, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, newError(ErrMissingToken, "Missing authorization header", nil)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !claims.audienceMatches(m.audience) {
		return nil, invalidTokenError("invalid audience", nil)
	}
	return claims.User()
}
