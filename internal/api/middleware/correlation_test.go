package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCorrelationID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	handler := CorrelationID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))

	require.NotEmpty(t, seen)
	require.Len(t, seen, 36)
	require.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestCorrelationID_ReusesIncomingHeader(t *testing.T) {
	var logs bytes.Buffer
	handler := CorrelationID(zerolog.New(&logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "upstream-id", rec.Header().Get("X-Request-ID"))
	require.Contains(t, logs.String(), `"request_id":"upstream-id"`)
}

func TestCorrelationID_ReplacesOversizedHeader(t *testing.T) {
	handler := CorrelationID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", maxRequestIDLength+1))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRequestLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	handler := CorrelationID(logger)(RequestLogging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", nil)
	req.Header.Set("X-Request-ID", "log-test")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := logs.String()
	require.Contains(t, out, `"method":"POST"`)
	require.Contains(t, out, `"path":"/api/v1/reviews"`)
	require.Contains(t, out, `"status":201`)
	require.Contains(t, out, `"bytes":5`)
	require.Contains(t, out, `"request_id":"log-test"`)
}

func TestRequestLogging_ServerErrorAtErrorLevel(t *testing.T) {
	var logs bytes.Buffer
	handler := RequestLogging(zerolog.New(&logs))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	require.Contains(t, logs.String(), `"level":"error"`)
}

func TestRecoverer(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	handler := CorrelationID(logger)(Recoverer("production")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	require.Equal(t, "Internal server error", body.Detail)
	require.Contains(t, logs.String(), "handler panic recovered")
	require.Contains(t, logs.String(), `"panic":"boom"`)
}

func TestRecoverer_RepanicsAbortHandler(t *testing.T) {
	handler := Recoverer("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestCorrelationID_ReplacesUnsafeHeader(t *testing.T) {
	for _, raw := range []string{"abc\ndef", "has space", `quote"d`} {
		handler := CorrelationID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews", nil)
		req.Header[RequestIDHeader] = []string{raw}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.NotEqual(t, raw, rec.Header().Get(RequestIDHeader))
		require.Len(t, rec.Header().Get(RequestIDHeader), 36)
	}
}
