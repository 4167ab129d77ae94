package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/courserate-sg/server/internal/api/middleware"
	"github.com/courserate-sg/server/internal/api/problem"
	"github.com/courserate-sg/server/internal/auth"
	"github.com/stretchr/testify/require"
)

func newRequest(method, target string, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func withID(req *http.Request, id string) *http.Request {
	req.SetPathValue("id", id)
	return req
}

func asUser(req *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUser(req.Context(), &auth.User{UserID: userID})
	return req.WithContext(ctx)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) problem.ProblemDetails {
	t.Helper()
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p problem.ProblemDetails
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	require.Equal(t, rec.Code, p.Status)
	return p
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}
