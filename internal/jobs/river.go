package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindRefreshReviewCounts    = "refresh_review_counts"
	JobKindRefreshAllReviewCounts = "refresh_all_review_counts"
)

const (
	RefreshMaxAttempts    = 5
	RefreshAllMaxAttempts = 3

	DefaultMaxWorkers      = 5
	DefaultRefreshInterval = time.Hour
)

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

// NewRetryPolicy returns the default retry policy configuration.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: RefreshMaxAttempts,
			BaseDelay:   30 * time.Second,
			MaxDelay:    30 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindRefreshReviewCounts: {
				MaxAttempts: RefreshMaxAttempts,
				BaseDelay:   10 * time.Second,
				MaxDelay:    10 * time.Minute,
			},
			// The periodic schedule runs again soon; retries only cover transient failures.
			JobKindRefreshAllReviewCounts: {
				MaxAttempts: RefreshAllMaxAttempts,
				BaseDelay:   1 * time.Minute,
				MaxDelay:    15 * time.Minute,
			},
		},
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	config := p.configFor(job.Kind)
	if config.BaseDelay == 0 {
		return time.Now()
	}

	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}

	return time.Now().Add(delay)
}

// InsertOptsForKind returns default insert options for a job kind.
func InsertOptsForKind(kind string) river.InsertOpts {
	config := NewRetryPolicy().configFor(kind)
	return river.InsertOpts{MaxAttempts: config.MaxAttempts}
}

// ClientOptions carries the optional parts of a River client configuration.
type ClientOptions struct {
	Logger       *slog.Logger
	Hooks        []rivertype.Hook
	OnFailure    FailureFunc
	PeriodicJobs []*river.PeriodicJob
	MaxWorkers   int
}

// NewClientConfig builds a River client configuration with retry policy.
// Failures are logged whether or not OnFailure is set.
func NewClientConfig(workers *river.Workers, opts ClientOptions) *river.Config {
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	policy := NewRetryPolicy()
	config := &river.Config{
		Workers:      workers,
		RetryPolicy:  policy,
		MaxAttempts:  policy.Default.MaxAttempts,
		PeriodicJobs: opts.PeriodicJobs,
		Hooks:        opts.Hooks,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
	}
	if opts.Logger != nil {
		config.Logger = opts.Logger
	}
	config.ErrorHandler = NewErrorHandler(opts.Logger, opts.OnFailure)
	return config
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, config *river.Config) (*river.Client[pgx.Tx], error) {
	client, err := river.NewClient(riverpgxv5.New(pool), config)
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return client, nil
}

// NewPeriodicJobs schedules the full review-count recompute every interval.
func NewPeriodicJobs(interval time.Duration) []*river.PeriodicJob {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return RefreshAllReviewCountsArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// Migrate applies River's own schema migrations (river_job and friends).
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("migrate river schema: %w", err)
	}
	return nil
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: RefreshMaxAttempts, BaseDelay: 1 * time.Minute, MaxDelay: 1 * time.Hour}
	}
	if config, ok := p.ByKind[kind]; ok {
		return config
	}
	return p.Default
}
