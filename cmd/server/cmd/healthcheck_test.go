package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPerformHealthCheck(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		responseBody any
		expectError  bool
		expectStatus string
	}{
		{
			name:         "healthy server",
			statusCode:   http.StatusOK,
			responseBody: HealthResponse{Status: "ok"},
			expectStatus: "ok",
		},
		{
			name:       "detailed healthy",
			statusCode: http.StatusOK,
			responseBody: HealthResponse{
				Status: "ok",
				Checks: map[string]CheckResult{"database": {Status: "ok"}},
			},
			expectStatus: "ok",
		},
		{
			name:       "degraded server (503)",
			statusCode: http.StatusServiceUnavailable,
			responseBody: HealthResponse{
				Status: "degraded",
				Checks: map[string]CheckResult{"database": {Status: "error", Message: "Database connection refused"}},
			},
			expectError:  true,
			expectStatus: "degraded",
		},
		{
			name:         "unexpected status value",
			statusCode:   http.StatusOK,
			responseBody: HealthResponse{Status: "starting"},
			expectError:  true,
			expectStatus: "starting",
		},
		{
			name:         "invalid response",
			statusCode:   http.StatusOK,
			responseBody: "not json",
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if str, ok := tt.responseBody.(string); ok {
					fmt.Fprint(w, str)
				} else {
					_ = json.NewEncoder(w).Encode(tt.responseBody)
				}
			}))
			defer server.Close()

			resp, err := performHealthCheck(context.Background(), server.Client(), server.URL)
			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if resp.Status != tt.expectStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.expectStatus)
			}
		})
	}
}

func TestPerformHealthCheckTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := performHealthCheck(ctx, server.Client(), server.URL); err == nil {
		t.Error("expected timeout error")
	}
}

func TestPerformHealthCheckUnreachable(t *testing.T) {
	if _, err := performHealthCheck(context.Background(), &http.Client{}, "http://127.0.0.1:1/health"); err == nil {
		t.Error("expected connection error")
	}
}

func TestDefaultHealthURL(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	if got := defaultHealthURL(); got != "http://localhost:8080/health" {
		t.Errorf("defaultHealthURL() = %q", got)
	}
	t.Setenv("SERVER_PORT", "9191")
	if got := defaultHealthURL(); got != "http://localhost:9191/health" {
		t.Errorf("defaultHealthURL() = %q", got)
	}
}
