package testauth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/courserate-sg/server/internal/auth"
	"github.com/golang-jwt/jwt/v5"
)

// KeyServer is an in-process JWKS endpoint with one RS256 signing key.
type KeyServer struct {
	URL      string
	ClientID string
	Kid      string

	tb     testing.TB
	key    *rsa.PrivateKey
	server *httptest.Server
}

// NewKeyServer starts a JWKS server that is closed when the test ends.
func NewKeyServer(tb testing.TB, clientID string) *KeyServer {
	tb.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		tb.Fatalf("generate rsa key: %v", err)
	}

	ks := &KeyServer{ClientID: clientID, Kid: "test-kid", tb: tb, key: key}
	body, err := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kid": ks.Kid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	if err != nil {
		tb.Fatalf("encode jwks: %v", err)
	}

	ks.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	ks.URL = ks.server.URL
	tb.Cleanup(ks.server.Close)
	return ks
}

// Verifier returns a JWKS verifier pointed at this server. It is closed when the test ends.
func (ks *KeyServer) Verifier() *auth.JWKSVerifier {
	v := auth.NewJWKSVerifier(ks.URL, ks.ClientID)
	ks.tb.Cleanup(func() { _ = v.Close() })
	return v
}

// Token signs an ID token for userID that expires after ttl. A negative ttl yields an
// already expired token.
func (ks *KeyServer) Token(tb testing.TB, userID, email string, ttl time.Duration) string {
	tb.Helper()
	now := time.Now()
	claims := &auth.Claims{
		Email:    email,
		TokenUse: "id",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{ks.ClientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ks.Kid
	signed, err := token.SignedString(ks.key)
	if err != nil {
		tb.Fatalf("sign token: %v", err)
	}
	return signed
}
