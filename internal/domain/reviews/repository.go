package reviews

import (
	"context"
	"errors"
	"time"

	"github.com/courserate-sg/server/internal/api/pagination"
)

var (
	ErrNotFound  = errors.New("review not found")
	ErrForbidden = errors.New("review belongs to another user")
)

type Review struct {
	ID               int64     `json:"id"`
	UserID           *string   `json:"user_id"`
	OverallRating    int       `json:"overall_rating"`
	DifficultyRating int       `json:"difficulty_rating"`
	WorkloadRating   int       `json:"workload_rating"`
	Comment          *string   `json:"comment"`
	Semester         string    `json:"semester"`
	Year             int       `json:"year"`
	CourseCode       string    `json:"course_code"`
	CourseName       *string   `json:"course_name"`
	University       string    `json:"university"`
	ProfessorName    *string   `json:"professor_name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Filters are case-insensitive exact matches; UserID is matched exactly.
type Filters struct {
	ProfessorName string
	CourseCode    string
	University    string
	UserID        string
}

// CreateParams is the storage-level shape of a new review.
type CreateParams struct {
	UserID           string
	OverallRating    int
	DifficultyRating int
	WorkloadRating   int
	Comment          *string
	Semester         string
	Year             int
	CourseCode       string
	CourseName       string
	University       string
	ProfessorName    *string
}

// UpdateParams carries only the fields to change; nil leaves a column untouched.
// ClearComment and ClearProfessorName set their column to NULL.
type UpdateParams struct {
	OverallRating      *int
	DifficultyRating   *int
	WorkloadRating     *int
	Comment            *string
	ClearComment       bool
	Semester           *string
	Year               *int
	ProfessorName      *string
	ClearProfessorName bool
}

func (p UpdateParams) IsEmpty() bool {
	return p.OverallRating == nil && p.DifficultyRating == nil && p.WorkloadRating == nil &&
		p.Comment == nil && !p.ClearComment && p.Semester == nil && p.Year == nil &&
		p.ProfessorName == nil && !p.ClearProfessorName
}

// Catalog rows created alongside a review.
type University struct {
	ID   int64
	Name string
}

type CourseRef struct {
	ID           int64
	Code         string
	Name         string
	UniversityID int64
}

type ProfessorRef struct {
	ID           int64
	Name         string
	UniversityID int64
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Review, error)
	GetByID(ctx context.Context, id int64) (*Review, error)
	List(ctx context.Context, filters Filters, page pagination.Page) ([]Review, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*Review, error)
	Delete(ctx context.Context, id int64) error
	Aggregate(ctx context.Context, filters Filters) (Aggregate, error)
	RatingCounts(ctx context.Context, filters Filters) (map[int]int, error)
	ProfessorNames(ctx context.Context, filters Filters) ([]string, error)

	GetOrCreateUniversity(ctx context.Context, name string) (*University, error)
	GetOrCreateCourse(ctx context.Context, code, name string, university University) (*CourseRef, error)
	GetOrCreateProfessor(ctx context.Context, name string, university University) (*ProfessorRef, error)

	WithTransaction(ctx context.Context, fn func(txRepo Repository) error) error
}

// CountRefresher recomputes the denormalized review_count columns for a university's catalog rows.
type CountRefresher interface {
	RefreshUniversity(ctx context.Context, university string) error
}
