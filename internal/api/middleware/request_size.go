package middleware

import (
	"fmt"
	"net/http"

	"github.com/courserate-sg/server/internal/api/problem"
)

// DefaultMaxBodySize caps review payloads at 1MB.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize limits the size of incoming request bodies.
//
// A declared Content-Length over the limit is rejected with 413 straight away. Otherwise
// the body is wrapped with http.MaxBytesReader, and the decoder surfaces the overflow.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				problem.Status(w, r, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("Request body exceeds %d bytes", maxBytes))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}

			next.ServeHTTP(w, r)
		})
	}
}
