package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/courserate-sg/server/internal/api/problem"
	"github.com/rs/zerolog"
)

// Recoverer turns a handler panic into a 500 problem response.
func Recoverer(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				zerolog.Ctx(r.Context()).Error().
					Str("panic", fmt.Sprint(rec)).
					Bytes("stack", debug.Stack()).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("handler panic recovered")

				problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, env,
					problem.WithDetail("Internal server error"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
