package storage

import (
	"context"

	"github.com/courserate-sg/server/internal/domain/courses"
	"github.com/courserate-sg/server/internal/domain/professors"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/courserate-sg/server/internal/domain/search"
	"github.com/courserate-sg/server/internal/domain/universities"
)

// Repository groups data access by domain.
type Repository interface {
	Reviews() reviews.Repository
	Courses() courses.Repository
	Professors() professors.Repository
	Universities() universities.Repository
	Catalog() search.Repository
	Counts() CountRepository

	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}

// CountRepository recomputes the denormalized review_count columns.
type CountRepository interface {
	// RefreshUniversity recomputes counts for one university's rows (case-insensitive).
	RefreshUniversity(ctx context.Context, university string) error
	// RefreshAll recomputes every count and returns the number of rows that changed.
	RefreshAll(ctx context.Context) (int64, error)
}
