package universities

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/courserate-sg/server/internal/api/pagination"
)

var ErrNotFound = errors.New("university not found")

type University struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ReviewCount int    `json:"review_count"`
}

// Filters.Name is a partial, case-insensitive match.
type Filters struct {
	Name string
}

type Repository interface {
	List(ctx context.Context, filters Filters, page pagination.Page) ([]University, error)
	GetByID(ctx context.Context, id int64) (*University, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters Filters, page pagination.Page) ([]University, error) {
	return s.repo.List(ctx, filters, page)
}

func (s *Service) Get(ctx context.Context, id int64) (*University, error) {
	return s.repo.GetByID(ctx, id)
}

func ParseFilters(values url.Values) (Filters, pagination.Page, error) {
	filters := Filters{Name: strings.TrimSpace(values.Get("name"))}
	page, err := pagination.Parse(values)
	return filters, page, err
}
