package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riverqueue/river/rivertype"
)

func TestInit(t *testing.T) {
	Init("v1.0.0", "abc123", "2026-01-30")

	if got := testutil.ToFloat64(AppInfo.WithLabelValues("v1.0.0", "abc123", "2026-01-30")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	wrapped := HTTPMiddleware(handler)

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/reviews/{id}", "200"))

	req := httptest.NewRequest("GET", "/api/v1/reviews/42", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/reviews/{id}", "200"))
	if after != before+1 {
		t.Errorf("HTTPRequestsTotal delta = %v, want 1", after-before)
	}
	if testutil.CollectAndCount(HTTPRequestDuration) == 0 {
		t.Error("HTTPRequestDuration should have recorded at least one request")
	}
}

func TestHTTPMiddlewareStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"OK", http.StatusOK},
		{"Not Found", http.StatusNotFound},
		{"Unprocessable", http.StatusUnprocessableEntity},
		{"Unauthorized", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			wrapped := HTTPMiddleware(handler)
			req := httptest.NewRequest("POST", "/status-test", nil)
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, req)

			if rec.Code != tt.statusCode {
				t.Errorf("Expected status %d, got %d", tt.statusCode, rec.Code)
			}
		})
	}

	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/status-test", "422")); got != 1 {
		t.Errorf("422 counter = %v, want 1", got)
	}
}

func TestObserveJWKSFetch(t *testing.T) {
	success := testutil.ToFloat64(JWKSFetches.WithLabelValues("success"))
	failure := testutil.ToFloat64(JWKSFetches.WithLabelValues("error"))

	ObserveJWKSFetch(nil)
	ObserveJWKSFetch(errors.New("boom"))
	ObserveJWKSFetch(errors.New("boom"))

	if got := testutil.ToFloat64(JWKSFetches.WithLabelValues("success")) - success; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(JWKSFetches.WithLabelValues("error")) - failure; got != 2 {
		t.Errorf("error delta = %v, want 2", got)
	}
}

func TestObserveJobFailure(t *testing.T) {
	ObserveJobFailure("refresh_review_counts", true)
	if got := testutil.ToFloat64(RiverJobFailures.WithLabelValues("refresh_review_counts", "true")); got < 1 {
		t.Errorf("RiverJobFailures = %v, want >= 1", got)
	}
}

func TestRiverMetricsHook(t *testing.T) {
	hook := NewRiverMetricsHook()
	ctx := context.Background()
	kind := "hook_test_kind"

	if err := hook.InsertBegin(ctx, &rivertype.JobInsertParams{Kind: kind}); err != nil {
		t.Fatalf("InsertBegin: %v", err)
	}
	if got := testutil.ToFloat64(RiverJobsQueued.WithLabelValues(kind)); got != 1 {
		t.Errorf("queued = %v, want 1", got)
	}

	job := &rivertype.JobRow{ID: 7, Kind: kind}
	if err := hook.WorkBegin(ctx, job); err != nil {
		t.Fatalf("WorkBegin: %v", err)
	}
	if got := testutil.ToFloat64(RiverJobsInFlight.WithLabelValues(kind)); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}

	if err := hook.WorkEnd(ctx, job, errors.New("failed")); err != nil {
		t.Fatalf("WorkEnd: %v", err)
	}
	if got := testutil.ToFloat64(RiverJobsInFlight.WithLabelValues(kind)); got != 0 {
		t.Errorf("in flight after end = %v, want 0", got)
	}
	if got := testutil.ToFloat64(RiverJobsCompleted.WithLabelValues(kind, "error")); got != 1 {
		t.Errorf("completed{error} = %v, want 1", got)
	}
	if len(hook.startTime) != 0 {
		t.Errorf("start times not cleared: %d", len(hook.startTime))
	}
}

type fakeStats struct{ total, acquired, idle, max int32 }

func (f fakeStats) TotalConns() int32              { return f.total }
func (f fakeStats) AcquiredConns() int32           { return f.acquired }
func (f fakeStats) IdleConns() int32               { return f.idle }
func (f fakeStats) MaxConns() int32                { return f.max }
func (f fakeStats) EmptyAcquireCount() int64       { return 3 }
func (f fakeStats) AcquireDuration() time.Duration { return 1500 * time.Millisecond }

func TestPoolCollector(t *testing.T) {
	stats := fakeStats{total: 5, acquired: 2, idle: 3, max: 15}
	collector := NewPoolCollector(func() PoolStats { return stats })

	if got := testutil.CollectAndCount(collector); got != 6 {
		t.Fatalf("collected %d metrics, want 6", got)
	}

	expected := `
# HELP courserate_db_connections_in_use Database connections currently acquired
# TYPE courserate_db_connections_in_use gauge
courserate_db_connections_in_use 2
# HELP courserate_db_connections_max_open Configured maximum database connections (pool_size + max_overflow)
# TYPE courserate_db_connections_max_open gauge
courserate_db_connections_max_open 15
`
	if err := testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"courserate_db_connections_in_use", "courserate_db_connections_max_open"); err != nil {
		t.Errorf("unexpected pool metrics: %v", err)
	}

	stats.acquired = 4
	if err := testutil.CollectAndCompare(collector, strings.NewReader(strings.Replace(expected, "in_use 2", "in_use 4", 1)),
		"courserate_db_connections_in_use", "courserate_db_connections_max_open"); err != nil {
		t.Errorf("collector did not read fresh stats: %v", err)
	}
}
