package auth

import (
	"errors"
	"net/http"
)

var (
	ErrMissingToken    = errors.New("missing token")
	ErrMalformedHeader = errors.New("malformed authorization header")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrNotConfigured   = errors.New("token verification not configured")
	ErrKeyFetch        = errors.New("failed to fetch signing keys")
)

// Error carries the client-facing detail for an authentication failure.
// errors.Is matches it against its Kind sentinel.
type Error struct {
	Kind   error
	Detail string
	cause  error
}

func newError(kind error, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Detail + ": " + e.cause.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool { return target == e.Kind }

// Status maps the failure to an HTTP status: configuration and key-fetch problems are
// server errors, everything else is 401.
func (e *Error) Status() int {
	switch e.Kind {
	case ErrNotConfigured, ErrKeyFetch:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

// AsError extracts an *Error, wrapping unknown errors as invalid-token failures.
func AsError(err error) *Error {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr
	}
	return newError(ErrInvalidToken, "Invalid token: "+err.Error(), err)
}

func missingHeaderError() *Error {
	return newError(ErrMissingToken, "Missing authorization header", nil)
}

func malformedHeaderError() *Error {
	return newError(ErrMalformedHeader, "Invalid authorization header format. Expected: Bearer <token>", nil)
}

func expiredError(cause error) *Error {
	return newError(ErrTokenExpired, "Token has expired", cause)
}

func invalidTokenError(reason string, cause error) *Error {
	return newError(ErrInvalidToken, "Invalid token: "+reason, cause)
}
