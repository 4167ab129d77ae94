package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/courserate-sg/server/internal/metrics"
	"github.com/courserate-sg/server/internal/storage/postgres"
)

const checkTimeout = 2 * time.Second

// DatabasePinger is the slice of the storage layer the detailed health check needs.
type DatabasePinger interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (postgres.MigrationStatus, error)
}

// HealthCheck is the /health/detailed body.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs *int64         `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type HealthChecker struct {
	db  DatabasePinger
	now func() time.Time
}

func NewHealthChecker(db DatabasePinger) *HealthChecker {
	return &HealthChecker{db: db, now: time.Now}
}

// Health reports liveness. It never touches the database.
func (h *HealthChecker) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.timestamp(),
	})
}

// Ping answers under the versioned API prefix.
func (h *HealthChecker) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "pong",
		"timestamp": h.timestamp(),
	})
}

// Detailed checks the database and the migration state. A failed database check
// or a dirty schema answers 503 with status "degraded".
func (h *HealthChecker) Detailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]CheckResult{
		"application": {Status: "ok"},
	}
	checks["database"] = h.checkDatabase(ctx)
	if checks["database"].Status == "ok" {
		checks["migrations"] = h.checkMigrations(ctx)
	} else {
		checks["migrations"] = CheckResult{Status: "unknown", Message: "Skipped: database unavailable"}
	}

	status, code := "ok", http.StatusOK
	health := 2.0
	for _, name := range []string{"database", "migrations"} {
		if checks[name].Status == "error" {
			status, code = "degraded", http.StatusServiceUnavailable
			health = 1
		}
	}
	if checks["database"].Status == "error" {
		health = 0
	}
	metrics.HealthStatus.Set(health)

	writeJSON(w, code, HealthCheck{
		Status:    status,
		Timestamp: h.timestamp(),
		Checks:    checks,
	})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "error", Message: "Database not configured"}
	}

	dbCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := h.now()
	err := h.db.Ping(dbCtx)
	latency := observeLatency("database", h.now().Sub(start))
	if err != nil {
		return CheckResult{Status: "error", Message: databaseMessage(err), LatencyMs: &latency}
	}
	return CheckResult{Status: "ok", Message: "PostgreSQL connection successful", LatencyMs: &latency}
}

func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	migCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := h.now()
	state, err := h.db.SchemaVersion(migCtx)
	latency := observeLatency("migrations", h.now().Sub(start))
	if err != nil {
		msg := "Failed to read migration version"
		if strings.Contains(err.Error(), "does not exist") {
			msg = "Migrations table not found"
		}
		return CheckResult{Status: "error", Message: msg, LatencyMs: &latency}
	}

	details := map[string]any{"version": state.Version, "dirty": state.Dirty}
	switch {
	case state.Dirty:
		return CheckResult{
			Status:    "error",
			Message:   "Database in dirty migration state",
			LatencyMs: &latency,
			Details:   details,
		}
	case state.Version == 0:
		return CheckResult{Status: "warn", Message: "No migrations applied", LatencyMs: &latency, Details: details}
	}
	return CheckResult{
		Status:    "ok",
		Message:   fmt.Sprintf("Migrations applied (version %d)", state.Version),
		LatencyMs: &latency,
		Details:   details,
	}
}

func (h *HealthChecker) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

func observeLatency(check string, d time.Duration) int64 {
	ms := d.Milliseconds()
	metrics.HealthCheckLatency.WithLabelValues(check).Set(float64(ms))
	return ms
}

func databaseMessage(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Database ping timed out"
	case strings.Contains(msg, "connection refused"):
		return "Database connection refused"
	case strings.Contains(msg, "no such host"):
		return "Cannot reach database host"
	case strings.Contains(msg, "authentication failed"):
		return "Database authentication failed"
	}
	return "Database query failed"
}
