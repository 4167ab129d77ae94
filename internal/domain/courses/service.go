package courses

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"golang.org/x/sync/errgroup"
)

// ReviewStore is the slice of review storage the course service reads from.
type ReviewStore interface {
	List(ctx context.Context, filters reviews.Filters, page pagination.Page) ([]reviews.Review, error)
	Aggregate(ctx context.Context, filters reviews.Filters) (reviews.Aggregate, error)
	RatingCounts(ctx context.Context, filters reviews.Filters) (map[int]int, error)
	ProfessorNames(ctx context.Context, filters reviews.Filters) ([]string, error)
}

type Service struct {
	repo    Repository
	reviews ReviewStore
}

func NewService(repo Repository, reviewStore ReviewStore) *Service {
	return &Service{repo: repo, reviews: reviewStore}
}

type Stats struct {
	CourseID                int64                `json:"course_id"`
	CourseCode              string               `json:"course_code"`
	CourseName              string               `json:"course_name"`
	University              string               `json:"university"`
	TotalReviews            int                  `json:"total_reviews"`
	AverageOverallRating    *float64             `json:"average_overall_rating"`
	AverageDifficultyRating *float64             `json:"average_difficulty_rating"`
	AverageWorkloadRating   *float64             `json:"average_workload_rating"`
	RatingDistribution      reviews.Distribution `json:"rating_distribution"`
	Professors              []string             `json:"professors"`
}

type Professor struct {
	ID                         int64    `json:"id"`
	Name                       string   `json:"name"`
	University                 string   `json:"university"`
	ReviewsForThisCourse       int      `json:"reviews_for_this_course"`
	AverageRatingForThisCourse *float64 `json:"average_rating_for_this_course"`
}

func (s *Service) List(ctx context.Context, filters Filters, page pagination.Page) ([]Course, error) {
	return s.repo.List(ctx, filters, page)
}

func (s *Service) Get(ctx context.Context, id int64) (*Course, error) {
	return s.repo.GetByID(ctx, id)
}

// Reviews lists reviews whose course code and university match the course.
func (s *Service) Reviews(ctx context.Context, id int64, page pagination.Page) ([]reviews.Review, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.reviews.List(ctx, reviewFilters(*course), page)
}

// Stats aggregates ratings for a course. The aggregate, distribution and professor queries
// run concurrently.
func (s *Service) Stats(ctx context.Context, id int64) (Stats, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Stats{}, err
	}
	filters := reviewFilters(*course)

	var (
		agg        reviews.Aggregate
		counts     map[int]int
		professors []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg, err = s.reviews.Aggregate(gctx, filters)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.reviews.RatingCounts(gctx, filters)
		return err
	})
	g.Go(func() error {
		var err error
		professors, err = s.reviews.ProfessorNames(gctx, filters)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("course %d stats: %w", id, err)
	}

	overall, difficulty, workload := agg.Rounded()
	return Stats{
		CourseID:                course.ID,
		CourseCode:              course.Code,
		CourseName:              course.DisplayName(),
		University:              course.University,
		TotalReviews:            agg.Count,
		AverageOverallRating:    overall,
		AverageDifficultyRating: difficulty,
		AverageWorkloadRating:   workload,
		RatingDistribution:      reviews.NewDistribution(counts),
		Professors:              uniqueSorted(professors),
	}, nil
}

// Professors lists the professors who taught the course, with per-course review counts
// and average overall rating, sorted by name.
func (s *Service) Professors(ctx context.Context, id int64) ([]Professor, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tallies, err := s.repo.ProfessorTallies(ctx, *course)
	if err != nil {
		return nil, err
	}

	out := make([]Professor, 0, len(tallies))
	for _, tally := range tallies {
		var avg *float64
		if tally.ReviewCount > 0 && tally.AverageRating != nil {
			rounded := reviews.Round2(*tally.AverageRating)
			avg = &rounded
		}
		out = append(out, Professor{
			ID:                         tally.ProfessorID,
			Name:                       tally.Name,
			University:                 tally.University,
			ReviewsForThisCourse:       tally.ReviewCount,
			AverageRatingForThisCourse: avg,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func reviewFilters(course Course) reviews.Filters {
	return reviews.Filters{CourseCode: course.Code, University: course.University}
}

func uniqueSorted(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ParseFilters reads code, university and skip/limit. Pagination problems are
// reported as validation.ParamError.
func ParseFilters(values url.Values) (Filters, pagination.Page, error) {
	filters := Filters{
		Code:       strings.TrimSpace(values.Get("code")),
		University: strings.TrimSpace(values.Get("university")),
	}
	page, err := pagination.Parse(values)
	return filters, page, err
}
