package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultJWKSCacheTTL   = time.Hour
	defaultFetchTimeout   = 10 * time.Second
	minForcedRefreshDelay = time.Minute
)

var errMissingKID = errors.New("missing kid")

// JWKSVerifier validates RS256 tokens against a remote JSON Web Key Set.
// The key set is fetched on first use and refreshed every cache TTL in the background.
// An unknown kid forces at most one refresh per minute. A failed refresh keeps the
// previously fetched keys.
type JWKSVerifier struct {
	url      string
	clientID string
	issuer   string
	ttl      time.Duration
	client   *http.Client
	logger   zerolog.Logger
	observe  func(err error)
	now      func() time.Time

	once    sync.Once
	keys    keyfunc.Keyfunc
	initErr error
	cancel  context.CancelFunc
}

type JWKSOption func(*JWKSVerifier)

// WithHTTPClient overrides the client used to fetch the key set.
func WithHTTPClient(client *http.Client) JWKSOption {
	return func(v *JWKSVerifier) { v.client = client }
}

// WithIssuer additionally requires the iss claim to match.
func WithIssuer(issuer string) JWKSOption {
	return func(v *JWKSVerifier) { v.issuer = issuer }
}

// WithCacheTTL sets the background refresh interval.
func WithCacheTTL(ttl time.Duration) JWKSOption {
	return func(v *JWKSVerifier) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

func WithLogger(logger zerolog.Logger) JWKSOption {
	return func(v *JWKSVerifier) { v.logger = logger }
}

// WithFetchObserver is called after every key-set request with its HTTP outcome.
func WithFetchObserver(fn func(err error)) JWKSOption {
	return func(v *JWKSVerifier) { v.observe = fn }
}

func withClock(now func() time.Time) JWKSOption {
	return func(v *JWKSVerifier) { v.now = now }
}

// NewJWKSVerifier builds a verifier for jwksURL. clientID, when set, must appear as the
// token audience (ID tokens) or client_id claim (access tokens). Close stops the
// background refresh.
func NewJWKSVerifier(jwksURL, clientID string, opts ...JWKSOption) *JWKSVerifier {
	v := &JWKSVerifier{
		url:      jwksURL,
		clientID: clientID,
		ttl:      defaultJWKSCacheTTL,
		client:   &http.Client{Timeout: defaultFetchTimeout},
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Close stops the background refresh. It is safe to call on an unused verifier.
func (v *JWKSVerifier) Close() error {
	if v == nil {
		return nil
	}
	v.once.Do(func() { v.initErr = errors.New("jwks verifier closed") })
	if v.cancel != nil {
		v.cancel()
	}
	return nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string) (*User, error) {
	if v == nil || v.url == "" {
		return nil, newError(ErrNotConfigured, "Cognito configuration not set", nil)
	}
	v.once.Do(v.init)
	if v.initErr != nil {
		return nil, newError(ErrKeyFetch, "Failed to fetch authentication keys", v.initErr)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	// One caller's cancellation must not fail a refresh other requests are waiting on.
	lookup := v.keys.KeyfuncCtx(context.WithoutCancel(ctx))
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if kid, _ := token.Header["kid"].(string); kid == "" {
			return nil, errMissingKID
		}
		return lookup(token)
	}, parserOpts...)
	if err != nil {
		return nil, v.classifyParseError(ctx, err)
	}
	if !claims.audienceMatches(v.clientID) {
		return nil, invalidTokenError("invalid audience", nil)
	}
	return claims.User()
}

func (v *JWKSVerifier) init() {
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel

	client := *v.client
	client.Transport = observedTransport{next: transportOrDefault(v.client.Transport), observe: v.observe}

	storage, err := jwkset.NewStorageFromHTTP(v.url, jwkset.HTTPClientStorageOptions{
		Client:                    &client,
		Ctx:                       ctx,
		HTTPTimeout:               defaultFetchTimeout,
		NoErrorReturnFirstHTTPReq: true,
		RefreshErrorHandler: func(_ context.Context, err error) {
			v.logger.Warn().Err(err).Str("jwks_url", v.url).Msg("jwks refresh failed, keeping cached keys")
		},
		RefreshInterval: v.ttl,
	})
	if err != nil {
		v.initErr = err
		return
	}
	storage, err = jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{v.url: storage},
		RateLimitWaitMax:  defaultFetchTimeout,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(minForcedRefreshDelay), 1),
	})
	if err != nil {
		v.initErr = err
		return
	}
	v.keys, v.initErr = keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
}

// classifyParseError maps parser and key lookup failures onto auth errors. A lookup
// failure with nothing cached means the key set could never be fetched.
func (v *JWKSVerifier) classifyParseError(ctx context.Context, err error) error {
	var authErr *Error
	switch {
	case errors.As(err, &authErr):
		return authErr
	case errors.Is(err, errMissingKID):
		return invalidTokenError("missing kid", err)
	case errors.Is(err, keyfunc.ErrKeyfunc):
		if cached, readErr := v.keys.Storage().KeyReadAll(ctx); readErr != nil || len(cached) == 0 {
			return newError(ErrKeyFetch, "Failed to fetch authentication keys", err)
		}
		return invalidTokenError("key not found", err)
	default:
		return classifyParseError(err)
	}
}

// classifyParseError maps parser failures shared by all verifiers onto auth errors.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return expiredError(err)
	default:
		return invalidTokenError(err.Error(), err)
	}
}

// observedTransport reports the outcome of each key-set request.
type observedTransport struct {
	next    http.RoundTripper
	observe func(err error)
}

func (t observedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if t.observe != nil {
		switch {
		case err != nil:
			t.observe(err)
		case resp.StatusCode != http.StatusOK:
			t.observe(fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode))
		default:
			t.observe(nil)
		}
	}
	return resp, err
}

func transportOrDefault(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}
