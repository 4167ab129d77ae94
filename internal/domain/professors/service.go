package professors

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"golang.org/x/sync/errgroup"
)

type ReviewStore interface {
	List(ctx context.Context, filters reviews.Filters, page pagination.Page) ([]reviews.Review, error)
	Aggregate(ctx context.Context, filters reviews.Filters) (reviews.Aggregate, error)
	RatingCounts(ctx context.Context, filters reviews.Filters) (map[int]int, error)
}

type Service struct {
	repo    Repository
	reviews ReviewStore
}

func NewService(repo Repository, reviewStore ReviewStore) *Service {
	return &Service{repo: repo, reviews: reviewStore}
}

type Stats struct {
	ProfessorID             int64                `json:"professor_id"`
	ProfessorName           string               `json:"professor_name"`
	University              string               `json:"university"`
	TotalReviews            int                  `json:"total_reviews"`
	AverageOverallRating    *float64             `json:"average_overall_rating"`
	AverageDifficultyRating *float64             `json:"average_difficulty_rating"`
	AverageWorkloadRating   *float64             `json:"average_workload_rating"`
	RatingDistribution      reviews.Distribution `json:"rating_distribution"`
}

func (s *Service) List(ctx context.Context, filters Filters, page pagination.Page) ([]Professor, error) {
	return s.repo.List(ctx, filters, page)
}

func (s *Service) Get(ctx context.Context, id int64) (*Professor, error) {
	return s.repo.GetByID(ctx, id)
}

// Reviews lists reviews naming this professor at the professor's university.
func (s *Service) Reviews(ctx context.Context, id int64, page pagination.Page) ([]reviews.Review, error) {
	professor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.reviews.List(ctx, reviewFilters(*professor), page)
}

func (s *Service) Stats(ctx context.Context, id int64) (Stats, error) {
	professor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Stats{}, err
	}
	filters := reviewFilters(*professor)

	var (
		agg    reviews.Aggregate
		counts map[int]int
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
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("professor %d stats: %w", id, err)
	}

	overall, difficulty, workload := agg.Rounded()
	return Stats{
		ProfessorID:             professor.ID,
		ProfessorName:           professor.Name,
		University:              professor.University,
		TotalReviews:            agg.Count,
		AverageOverallRating:    overall,
		AverageDifficultyRating: difficulty,
		AverageWorkloadRating:   workload,
		RatingDistribution:      reviews.NewDistribution(counts),
	}, nil
}

func reviewFilters(p Professor) reviews.Filters {
	return reviews.Filters{ProfessorName: p.Name, University: p.University}
}

func ParseFilters(values url.Values) (Filters, pagination.Page, error) {
	filters := Filters{Name: strings.TrimSpace(values.Get("name"))}
	page, err := pagination.Parse(values)
	return filters, page, err
}
