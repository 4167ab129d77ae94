package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func reviewItemMux() http.Handler {
	ok := func(status int, body string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		})
	}
	return methodMux(map[string]http.Handler{
		http.MethodGet:    ok(http.StatusOK, "review"),
		http.MethodPut:    ok(http.StatusOK, "updated"),
		http.MethodDelete: ok(http.StatusNoContent, ""),
	})
}

func TestMethodMux_ReviewItemRoutes(t *testing.T) {
	mux := reviewItemMux()

	tests := []struct {
		method     string
		wantStatus int
		wantBody   string
	}{
		{http.MethodGet, http.StatusOK, "review"},
		{http.MethodHead, http.StatusOK, "review"},
		{http.MethodPut, http.StatusOK, "updated"},
		{http.MethodDelete, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tt.method, "/api/v1/reviews/7", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.method != http.MethodHead && w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMethodMux_UnsupportedMethodIsProblem(t *testing.T) {
	mux := reviewItemMux()

	for _, method := range []string{http.MethodPost, http.MethodPatch, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(method, "/api/v1/reviews/7", nil))

			if w.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", w.Code)
			}
			if got := w.Header().Get("Allow"); got != "DELETE, GET, PUT" {
				t.Errorf("Allow = %q, want %q", got, "DELETE, GET, PUT")
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("Content-Type = %q, want application/problem+json", ct)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode problem: %v", err)
			}
			if body["status"] != float64(http.StatusMethodNotAllowed) {
				t.Errorf("problem status = %v", body["status"])
			}
		})
	}
}

func TestMethodMux_HeadWithoutGet(t *testing.T) {
	mux := methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}),
	})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/api/v1/reviews", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "POST" {
		t.Errorf("Allow = %q, want POST", got)
	}
}

func TestAllowedMethods(t *testing.T) {
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		name     string
		handlers map[string]http.Handler
		want     string
	}{
		{"none", map[string]http.Handler{}, ""},
		{"read only", map[string]http.Handler{http.MethodGet: noop}, "GET"},
		{"review collection", map[string]http.Handler{http.MethodPost: noop, http.MethodGet: noop}, "GET, POST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := allowedMethods(tt.handlers); got != tt.want {
				t.Errorf("allowedMethods() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotFoundHandler(t *testing.T) {
	w := httptest.NewRecorder()
	notFoundHandler(w, httptest.NewRequest(http.MethodGet, "/api/v1/lecturers", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
