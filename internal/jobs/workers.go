package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/courserate-sg/server/internal/storage"
	"github.com/courserate-sg/server/internal/telemetry"
	"github.com/riverqueue/river"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ReviewCountsArgs recomputes review_count for one university's catalog rows.
type ReviewCountsArgs struct {
	University string `json:"university"`
}

func (ReviewCountsArgs) Kind() string { return JobKindRefreshReviewCounts }

// InsertOpts sets no UniqueOpts. River's unique states always include running,
// and completed by default, so a unique job would drop the refresh for any write
// landing during or after an earlier refresh of the same university.
func (ReviewCountsArgs) InsertOpts() river.InsertOpts {
	return InsertOptsForKind(JobKindRefreshReviewCounts)
}

// RefreshAllReviewCountsArgs recomputes every review_count column.
type RefreshAllReviewCountsArgs struct{}

func (RefreshAllReviewCountsArgs) Kind() string { return JobKindRefreshAllReviewCounts }

func (RefreshAllReviewCountsArgs) InsertOpts() river.InsertOpts {
	opts := InsertOptsForKind(JobKindRefreshAllReviewCounts)
	opts.UniqueOpts = river.UniqueOpts{ByPeriod: 5 * time.Minute}
	return opts
}

type ReviewCountsWorker struct {
	river.WorkerDefaults[ReviewCountsArgs]
	Counts storage.CountRepository
	Logger *slog.Logger
}

func (ReviewCountsWorker) Kind() string { return JobKindRefreshReviewCounts }

func (w ReviewCountsWorker) Work(ctx context.Context, job *river.Job[ReviewCountsArgs]) error {
	if job == nil {
		return fmt.Errorf("review counts job missing")
	}
	if w.Counts == nil {
		return fmt.Errorf("count repository not configured")
	}
	university := strings.TrimSpace(job.Args.University)
	if university == "" {
		return river.JobCancel(fmt.Errorf("review counts job has no university"))
	}

	ctx, span := telemetry.Tracer().Start(ctx, "jobs."+JobKindRefreshReviewCounts)
	defer span.End()
	span.SetAttributes(attribute.String("university", university), attribute.Int("attempt", job.Attempt))

	if err := w.Counts.RefreshUniversity(ctx, university); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("refresh review counts for %s: %w", university, err)
	}
	logger(w.Logger).Debug("review counts refreshed", "university", university, "attempt", job.Attempt)
	return nil
}

type RefreshAllReviewCountsWorker struct {
	river.WorkerDefaults[RefreshAllReviewCountsArgs]
	Counts storage.CountRepository
	Logger *slog.Logger
}

func (RefreshAllReviewCountsWorker) Kind() string { return JobKindRefreshAllReviewCounts }

func (w RefreshAllReviewCountsWorker) Work(ctx context.Context, job *river.Job[RefreshAllReviewCountsArgs]) error {
	if job == nil {
		return fmt.Errorf("refresh all job missing")
	}
	if w.Counts == nil {
		return fmt.Errorf("count repository not configured")
	}

	ctx, span := telemetry.Tracer().Start(ctx, "jobs."+JobKindRefreshAllReviewCounts)
	defer span.End()

	start := time.Now()
	changed, err := w.Counts.RefreshAll(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("refresh all review counts: %w", err)
	}
	span.SetAttributes(attribute.Int64("rows_changed", changed))
	logger(w.Logger).Info("review counts recomputed",
		"rows_changed", changed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// NewWorkers registers every worker against counts.
func NewWorkers(counts storage.CountRepository, log *slog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, ReviewCountsWorker{Counts: counts, Logger: log})
	river.AddWorker(workers, RefreshAllReviewCountsWorker{Counts: counts, Logger: log})
	return workers
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
