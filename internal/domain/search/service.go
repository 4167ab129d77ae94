package search

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/courses"
	"github.com/courserate-sg/server/internal/domain/professors"
	"github.com/courserate-sg/server/internal/validation"
	"golang.org/x/sync/errgroup"
)

// candidateLimit caps the rows a single search reads.
const candidateLimit = 100

type ProfessorLister interface {
	List(ctx context.Context, filters professors.Filters, page pagination.Page) ([]professors.Professor, error)
}

type CourseLister interface {
	List(ctx context.Context, filters courses.Filters, page pagination.Page) ([]courses.Course, error)
}

// Repository answers the catalog-wide counting queries.
type Repository interface {
	CountProfessors(ctx context.Context) (int, error)
	CountCourses(ctx context.Context) (int, error)
	CountUniversities(ctx context.Context) (int, error)
	CountReviews(ctx context.Context) (int, error)
	ProfessorsByUniversity(ctx context.Context) (map[string]int, error)
	CoursesByUniversity(ctx context.Context) (map[string]int, error)
}

type Service struct {
	professors ProfessorLister
	courses    CourseLister
	repo       Repository
}

func NewService(professorLister ProfessorLister, courseLister CourseLister, repo Repository) *Service {
	return &Service{professors: professorLister, courses: courseLister, repo: repo}
}

type CourseMatch struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	University string `json:"university"`
}

type GlobalProfessor struct {
	Name       string `json:"name"`
	University string `json:"university"`
	ID         int64  `json:"id"`
}

type GlobalCourse struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	University string `json:"university"`
	ID         int64  `json:"id"`
}

type GlobalResult struct {
	Professors []GlobalProfessor `json:"professors"`
	Courses    []GlobalCourse    `json:"courses"`
}

type Stats struct {
	TotalProfessors        int            `json:"total_professors"`
	TotalCourses           int            `json:"total_courses"`
	TotalUniversities      int            `json:"total_universities"`
	TotalReviews           int            `json:"total_reviews"`
	ProfessorsByUniversity map[string]int `json:"professors_by_university"`
	CoursesByUniversity    map[string]int `json:"courses_by_university"`
}

var candidatePage = pagination.Page{Skip: 0, Limit: candidateLimit}

// Professors returns the unique professor names partially matching q, sorted.
func (s *Service) Professors(ctx context.Context, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []string{}, nil
	}
	found, err := s.professors.List(ctx, professors.Filters{Name: q}, candidatePage)
	if err != nil {
		return nil, fmt.Errorf("search professors: %w", err)
	}
	seen := make(map[string]struct{}, len(found))
	names := make([]string, 0, len(found))
	for _, p := range found {
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Courses returns courses whose code contains q, or equals q when exact is set.
func (s *Service) Courses(ctx context.Context, q string, exact bool) ([]CourseMatch, error) {
	found, err := s.matchCourses(ctx, q, exact)
	if err != nil {
		return nil, err
	}
	out := make([]CourseMatch, 0, len(found))
	for _, c := range found {
		out = append(out, CourseMatch{Code: c.Code, Name: c.DisplayName(), University: c.University})
	}
	return out, nil
}

// Global searches professors by partial name and courses by exact code.
func (s *Service) Global(ctx context.Context, q string) (GlobalResult, error) {
	result := GlobalResult{Professors: []GlobalProfessor{}, Courses: []GlobalCourse{}}
	q = strings.TrimSpace(q)
	if q == "" {
		return result, nil
	}

	var (
		foundProfessors []professors.Professor
		foundCourses    []courses.Course
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		foundProfessors, err = s.professors.List(gctx, professors.Filters{Name: q}, candidatePage)
		return err
	})
	g.Go(func() error {
		var err error
		foundCourses, err = s.matchCourses(gctx, q, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return GlobalResult{}, fmt.Errorf("global search: %w", err)
	}

	for _, p := range foundProfessors {
		result.Professors = append(result.Professors, GlobalProfessor{Name: p.Name, University: p.University, ID: p.ID})
	}
	for _, c := range foundCourses {
		result.Courses = append(result.Courses, GlobalCourse{Code: c.Code, Name: c.DisplayName(), University: c.University, ID: c.ID})
	}
	return result, nil
}

func (s *Service) matchCourses(ctx context.Context, q string, exact bool) ([]courses.Course, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	found, err := s.courses.List(ctx, courses.Filters{Code: q}, candidatePage)
	if err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	if !exact {
		return found, nil
	}
	matched := found[:0]
	for _, c := range found {
		if strings.EqualFold(c.Code, q) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// Stats counts catalog rows. The six queries run concurrently.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(gctx)
			*dst = n
			return err
		})
	}
	count(&stats.TotalProfessors, s.repo.CountProfessors)
	count(&stats.TotalCourses, s.repo.CountCourses)
	count(&stats.TotalUniversities, s.repo.CountUniversities)
	count(&stats.TotalReviews, s.repo.CountReviews)
	g.Go(func() error {
		var err error
		stats.ProfessorsByUniversity, err = s.repo.ProfessorsByUniversity(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.CoursesByUniversity, err = s.repo.CoursesByUniversity(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("search stats: %w", err)
	}
	if stats.ProfessorsByUniversity == nil {
		stats.ProfessorsByUniversity = map[string]int{}
	}
	if stats.CoursesByUniversity == nil {
		stats.CoursesByUniversity = map[string]int{}
	}
	return stats, nil
}

// ParseExact reads the exact flag, which defaults to true.
func ParseExact(values url.Values) (bool, error) {
	raw := strings.TrimSpace(values.Get("exact"))
	if raw == "" {
		return true, nil
	}
	switch strings.ToLower(raw) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	exact, err := strconv.ParseBool(raw)
	if err != nil {
		return false, validation.ParamError{Field: "exact", Message: "must be a boolean"}
	}
	return exact, nil
}
