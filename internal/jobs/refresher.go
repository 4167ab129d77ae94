package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// Inserter is the subset of *river.Client used to enqueue jobs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// QueueRefresher satisfies reviews.CountRefresher by enqueueing a ReviewCountsArgs job
// instead of recomputing counts on the request path.
type QueueRefresher struct {
	client Inserter
}

func NewQueueRefresher(client Inserter) *QueueRefresher {
	return &QueueRefresher{client: client}
}

func (q *QueueRefresher) RefreshUniversity(ctx context.Context, university string) error {
	university = strings.TrimSpace(university)
	if university == "" {
		return fmt.Errorf("enqueue review counts: university is required")
	}
	if _, err := q.client.Insert(ctx, ReviewCountsArgs{University: university}, nil); err != nil {
		return fmt.Errorf("enqueue review counts: %w", err)
	}
	return nil
}
