package courses

import (
	"context"
	"errors"

	"github.com/courserate-sg/server/internal/api/pagination"
)

var ErrNotFound = errors.New("course not found")

type Course struct {
	ID           int64   `json:"id"`
	Code         string  `json:"code"`
	Name         *string `json:"name"`
	UniversityID int64   `json:"university_id"`
	University   string  `json:"university"`
	ReviewCount  int     `json:"review_count"`
}

// DisplayName falls back to the course code when no name was recorded.
func (c Course) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.Code
}

// Filters: Code is a partial match, University an exact match; both case-insensitive.
type Filters struct {
	Code       string
	University string
}

// ProfessorTally is one professor's share of a course's reviews.
type ProfessorTally struct {
	ProfessorID   int64
	Name          string
	University    string
	ReviewCount   int
	AverageRating *float64
}

type Repository interface {
	List(ctx context.Context, filters Filters, page pagination.Page) ([]Course, error)
	GetByID(ctx context.Context, id int64) (*Course, error)
	// ProfessorTallies groups the course's reviews by professor name and joins each name to a
	// professor record at the same university.
	ProfessorTallies(ctx context.Context, course Course) ([]ProfessorTally, error)
}
