package reviews

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/rs/zerolog"
)

var ErrUnauthenticated = errors.New("authenticated user required")

type Service struct {
	repo      Repository
	refresher CountRefresher
}

// NewService wires the review service. refresher may be nil, in which case
// review_count columns are left to the periodic refresh.
func NewService(repo Repository, refresher CountRefresher) *Service {
	return &Service{repo: repo, refresher: refresher}
}

// Create records a review for userID, creating the university, course and professor
// rows it refers to when they do not exist yet.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Review, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	courseName := in.CourseCode
	if in.CourseName != nil {
		courseName = *in.CourseName
	}

	var created *Review
	err := s.repo.WithTransaction(ctx, func(tx Repository) error {
		university, err := tx.GetOrCreateUniversity(ctx, in.University)
		if err != nil {
			return err
		}
		if _, err := tx.GetOrCreateCourse(ctx, in.CourseCode, courseName, *university); err != nil {
			return err
		}
		if in.ProfessorName != nil {
			if _, err := tx.GetOrCreateProfessor(ctx, *in.ProfessorName, *university); err != nil {
				return err
			}
		}
		created, err = tx.Create(ctx, CreateParams{
			UserID:           userID,
			OverallRating:    in.OverallRating,
			DifficultyRating: in.DifficultyRating,
			WorkloadRating:   in.WorkloadRating,
			Comment:          in.Comment,
			Semester:         in.Semester,
			Year:             in.Year,
			CourseCode:       in.CourseCode,
			CourseName:       courseName,
			University:       university.Name,
			ProfessorName:    in.ProfessorName,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.refreshCounts(ctx, created.University)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Review, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns reviews in listing order. Empty filters list every review.
func (s *Service) List(ctx context.Context, filters Filters, page pagination.Page) ([]Review, error) {
	return s.repo.List(ctx, filters, page)
}

func (s *Service) ListForUser(ctx context.Context, userID string, page pagination.Page) ([]Review, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	return s.repo.List(ctx, Filters{UserID: userID}, page)
}

func (s *Service) Stats(ctx context.Context, filters Filters) (Stats, error) {
	agg, err := s.repo.Aggregate(ctx, filters)
	if err != nil {
		return Stats{}, err
	}
	return agg.Stats(), nil
}

// Update applies a partial update. Only the author may update a review.
func (s *Service) Update(ctx context.Context, userID string, id int64, in UpdateInput) (*Review, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	params := in.params()

	var (
		updated   *Review
		unchanged bool
	)
	err := s.repo.WithTransaction(ctx, func(tx Repository) error {
		existing, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !ownedBy(existing, userID) {
			return ErrForbidden
		}
		if params.IsEmpty() {
			updated, unchanged = existing, true
			return nil
		}
		if params.ProfessorName != nil {
			university, err := tx.GetOrCreateUniversity(ctx, existing.University)
			if err != nil {
				return err
			}
			if _, err := tx.GetOrCreateProfessor(ctx, *params.ProfessorName, *university); err != nil {
				return err
			}
		}
		updated, err = tx.Update(ctx, id, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !unchanged {
		s.refreshCounts(ctx, updated.University)
	}
	return updated, nil
}

// Delete removes a review. Only the author may delete a review.
func (s *Service) Delete(ctx context.Context, userID string, id int64) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUnauthenticated
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !ownedBy(existing, userID) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.refreshCounts(ctx, existing.University)
	return nil
}

func ownedBy(review *Review, userID string) bool {
	return review != nil && review.UserID != nil && *review.UserID == userID
}

// refreshCounts is best-effort; the periodic refresh repairs any miss.
func (s *Service) refreshCounts(ctx context.Context, university string) {
	if s.refresher == nil || university == "" {
		return
	}
	if err := s.refresher.RefreshUniversity(ctx, university); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("university", university).Msg("review count refresh failed")
	}
}

// ParseFilters reads professor_name, course_code and university plus skip/limit.
// Pagination problems are reported as validation.ParamError.
func ParseFilters(values url.Values) (Filters, pagination.Page, error) {
	filters := Filters{
		ProfessorName: strings.TrimSpace(values.Get("professor_name")),
		CourseCode:    strings.TrimSpace(values.Get("course_code")),
		University:    strings.TrimSpace(values.Get("university")),
	}
	page, err := pagination.Parse(values)
	return filters, page, err
}
