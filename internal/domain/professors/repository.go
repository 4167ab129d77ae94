package professors

import (
	"context"
	"errors"

	"github.com/courserate-sg/server/internal/api/pagination"
)

var ErrNotFound = errors.New("professor not found")

type Professor struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	UniversityID int64  `json:"university_id"`
	University   string `json:"university"`
	ReviewCount  int    `json:"review_count"`
}

// Filters.Name is a partial, case-insensitive match.
type Filters struct {
	Name string
}

type Repository interface {
	List(ctx context.Context, filters Filters, page pagination.Page) ([]Professor, error)
	GetByID(ctx context.Context, id int64) (*Professor, error)
}
