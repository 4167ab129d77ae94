package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// FailureFunc observes a failed or panicked job by kind.
type FailureFunc func(kind string, panicked bool)

// ErrorHandler logs job failures and reports them to an optional observer.
// It never overrides River's retry decision.
type ErrorHandler struct {
	logger    *slog.Logger
	onFailure FailureFunc
}

func NewErrorHandler(logger *slog.Logger, onFailure FailureFunc) *ErrorHandler {
	return &ErrorHandler{logger: logger, onFailure: onFailure}
}

func (h *ErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	h.report(ctx, job, err, false, "")
	return nil
}

func (h *ErrorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	h.report(ctx, job, fmt.Errorf("panic: %v", panicVal), true, trace)
	return nil
}

func (h *ErrorHandler) report(ctx context.Context, job *rivertype.JobRow, err error, panicked bool, trace string) {
	attrs := []any{
		"job_id", job.ID,
		"kind", job.Kind,
		"attempt", job.Attempt,
		"max_attempts", job.MaxAttempts,
		"error", err,
	}
	if trace != "" {
		attrs = append(attrs, "trace", trace)
	}
	logger(h.logger).ErrorContext(ctx, "job failed", attrs...)
	if h.onFailure != nil {
		h.onFailure(job.Kind, panicked)
	}
}
