package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/courserate-sg/server/internal/api/problem"
	"github.com/courserate-sg/server/internal/auth"
	"github.com/courserate-sg/server/internal/metrics"
	"github.com/rs/zerolog"
)

type contextKeyAuth string

const userKey contextKeyAuth = "user"

// RequireUser verifies the bearer token and rejects the request with a problem response
// when verification fails. Expired tokens get a WWW-Authenticate challenge.
func RequireUser(verifier auth.Verifier, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authenticate(r, verifier)
			if err != nil {
				authErr := auth.AsError(err)
				metrics.AuthFailures.WithLabelValues(failureReason(authErr)).Inc()

				status := authErr.Status()
				if status == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", "Bearer")
				}
				title := "Unauthorized"
				if status >= http.StatusInternalServerError {
					title = "Authentication unavailable"
				}
				problem.Write(w, r, status, problem.TypeForStatus(status), title, err, env,
					problem.WithDetail(authErr.Detail))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// OptionalUser attaches the user when the request carries a valid token and otherwise
// proceeds anonymously.
func OptionalUser(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := authenticate(r, verifier)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("optional authentication failed")
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

func authenticate(r *http.Request, verifier auth.Verifier) (*auth.User, error) {
	token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, &auth.Error{Kind: auth.ErrNotConfigured, Detail: "Cognito configuration not set"}
	}
	return verifier.Verify(r.Context(), token)
}

func ContextWithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(userKey).(*auth.User)
	return user, ok && user != nil
}

// CurrentUser returns the authenticated user for r, or nil.
func CurrentUser(r *http.Request) *auth.User {
	if r == nil {
		return nil
	}
	user, _ := UserFromContext(r.Context())
	return user
}

func failureReason(err *auth.Error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, auth.ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, auth.ErrKeyFetch):
		return "key_fetch"
	default:
		return "invalid_token"
	}
}
