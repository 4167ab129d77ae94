package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/courserate-sg/server/internal/domain/courses"
	"github.com/courserate-sg/server/internal/domain/professors"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/courserate-sg/server/internal/domain/search"
	"github.com/courserate-sg/server/internal/domain/universities"
	"github.com/courserate-sg/server/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ storage.Repository = (*Repository)(nil)

// Repository implements storage.Repository with a PostgreSQL backend
type Repository struct {
	conn
}

// NewRepository creates a new PostgreSQL-backed repository
func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &Repository{conn: conn{pool: pool}}, nil
}

func (r *Repository) Reviews() reviews.Repository {
	return &ReviewRepository{conn: r.conn}
}

func (r *Repository) Courses() courses.Repository {
	return &CourseRepository{conn: r.conn}
}

func (r *Repository) Professors() professors.Repository {
	return &ProfessorRepository{conn: r.conn}
}

func (r *Repository) Universities() universities.Repository {
	return &UniversityRepository{conn: r.conn}
}

func (r *Repository) Catalog() search.Repository {
	return &CatalogRepository{conn: r.conn}
}

func (r *Repository) Counts() storage.CountRepository {
	return &CountRepository{conn: r.conn}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithTx executes fn within a database transaction
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	return r.withTx(ctx, func(c conn) error {
		return fn(ctx, &Repository{conn: c})
	})
}

// SchemaVersion reads the version golang-migrate recorded, without opening a migrator.
// A database with no migrations applied reports version 0.
func (r *Repository) SchemaVersion(ctx context.Context) (MigrationStatus, error) {
	var status MigrationStatus
	var version int64
	err := r.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &status.Dirty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MigrationStatus{}, nil
		}
		return MigrationStatus{}, fmt.Errorf("read schema version: %w", err)
	}
	status.Version = uint(version)
	return status, nil
}
