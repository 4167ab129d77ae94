package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/courses"
	"github.com/courserate-sg/server/internal/domain/professors"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/courserate-sg/server/internal/domain/search"
	"github.com/mark3labs/mcp-go/mcp"
)

type stubSearcher struct {
	professors []string
	courses    []search.CourseMatch
	err        error
	gotQuery   string
	gotExact   bool
}

func (s *stubSearcher) Professors(_ context.Context, q string) ([]string, error) {
	s.gotQuery = q
	return s.professors, s.err
}

func (s *stubSearcher) Courses(_ context.Context, q string, exact bool) ([]search.CourseMatch, error) {
	s.gotQuery = q
	s.gotExact = exact
	return s.courses, s.err
}

type stubCourseStats struct {
	stats courses.Stats
	err   error
}

func (s stubCourseStats) Stats(_ context.Context, _ int64) (courses.Stats, error) {
	return s.stats, s.err
}

type stubProfessorStats struct {
	stats professors.Stats
	err   error
}

func (s stubProfessorStats) Stats(_ context.Context, _ int64) (professors.Stats, error) {
	return s.stats, s.err
}

type stubReviewLister struct {
	items   []reviews.Review
	err     error
	filters reviews.Filters
	page    pagination.Page
}

func (s *stubReviewLister) List(_ context.Context, filters reviews.Filters, page pagination.Page) ([]reviews.Review, error) {
	s.filters = filters
	s.page = page
	return s.items, s.err
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func TestSearchProfessorsHandler(t *testing.T) {
	searcher := &stubSearcher{professors: []string{"Ada Tan", "Ben Lim"}}
	tools := NewSearchTools(searcher)

	result, err := tools.SearchProfessorsHandler(context.Background(), callRequest("search_professors", map[string]any{"query": "tan"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var payload struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Data) != 2 || payload.Data[0] != "Ada Tan" {
		t.Errorf("data = %v, want [Ada Tan Ben Lim]", payload.Data)
	}
	if searcher.gotQuery != "tan" {
		t.Errorf("query = %q, want %q", searcher.gotQuery, "tan")
	}
}

func TestSearchProfessorsHandlerEmptyResultIsArray(t *testing.T) {
	tools := NewSearchTools(&stubSearcher{})

	result, _ := tools.SearchProfessorsHandler(context.Background(), callRequest("search_professors", map[string]any{"query": "zzz"}))
	if got := resultText(t, result); !strings.Contains(got, `"data":[]`) {
		t.Errorf("text = %s, want empty data array", got)
	}
}

func TestSearchProfessorsHandlerArguments(t *testing.T) {
	t.Run("mistyped query is a tool error", func(t *testing.T) {
		searcher := &stubSearcher{}
		result, err := NewSearchTools(searcher).SearchProfessorsHandler(context.Background(),
			callRequest("search_professors", map[string]any{"query": 42}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Fatalf("expected tool error, got %s", resultText(t, result))
		}
		if got := resultText(t, result); !strings.Contains(got, "invalid arguments") {
			t.Errorf("text = %q, want invalid arguments", got)
		}
	})

	t.Run("raw JSON arguments", func(t *testing.T) {
		searcher := &stubSearcher{}
		req := mcp.CallToolRequest{}
		req.Params.Name = "search_professors"
		req.Params.Arguments = json.RawMessage(`{"query":"lim"}`)

		result, err := NewSearchTools(searcher).SearchProfessorsHandler(context.Background(), req)
		if err != nil || result.IsError {
			t.Fatalf("unexpected failure: err=%v result=%v", err, result)
		}
		if searcher.gotQuery != "lim" {
			t.Errorf("query = %q, want lim", searcher.gotQuery)
		}
	})

	t.Run("missing arguments", func(t *testing.T) {
		searcher := &stubSearcher{}
		req := mcp.CallToolRequest{}
		req.Params.Name = "search_professors"

		result, err := NewSearchTools(searcher).SearchProfessorsHandler(context.Background(), req)
		if err != nil || result.IsError {
			t.Fatalf("unexpected failure: err=%v result=%v", err, result)
		}
		if searcher.gotQuery != "" {
			t.Errorf("query = %q, want empty", searcher.gotQuery)
		}
	})
}

func TestSearchCoursesHandlerExactDefault(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]any
		wantExact bool
	}{
		{name: "default exact", args: map[string]any{"query": "CS1010S"}, wantExact: true},
		{name: "explicit partial", args: map[string]any{"query": "CS", "exact": false}, wantExact: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &stubSearcher{courses: []search.CourseMatch{{Code: "CS1010S", Name: "Programming Methodology", University: "NUS"}}}
			tools := NewSearchTools(searcher)

			result, err := tools.SearchCoursesHandler(context.Background(), callRequest("search_courses", tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError {
				t.Fatalf("unexpected tool error: %s", resultText(t, result))
			}
			if searcher.gotExact != tt.wantExact {
				t.Errorf("exact = %v, want %v", searcher.gotExact, tt.wantExact)
			}
			if !strings.Contains(resultText(t, result), `"code":"CS1010S"`) {
				t.Errorf("text = %s, want course code", resultText(t, result))
			}
		})
	}
}

func TestSearchHandlersServiceError(t *testing.T) {
	tools := NewSearchTools(&stubSearcher{err: errors.New("db down")})

	result, err := tools.SearchCoursesHandler(context.Background(), callRequest("search_courses", map[string]any{"query": "CS"}))
	if err != nil {
		t.Fatalf("handler should report failures as tool errors, got %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for service failure")
	}
}

func TestSearchHandlersNotConfigured(t *testing.T) {
	var tools *SearchTools

	result, _ := tools.SearchProfessorsHandler(context.Background(), callRequest("search_professors", nil))
	if !result.IsError {
		t.Error("expected IsError when service missing")
	}
}

func TestCourseStatsHandler(t *testing.T) {
	avg := 4.5
	tools := NewStatsTools(stubCourseStats{stats: courses.Stats{
		CourseID:             3,
		CourseCode:           "CS2040S",
		TotalReviews:         2,
		AverageOverallRating: &avg,
		Professors:           []string{"Ada Tan"},
	}}, nil)

	result, err := tools.CourseStatsHandler(context.Background(), callRequest("course_stats", map[string]any{"course_id": 3}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stats courses.Stats
	if err := json.Unmarshal([]byte(resultText(t, result)), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.CourseCode != "CS2040S" || stats.TotalReviews != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AverageOverallRating == nil || *stats.AverageOverallRating != 4.5 {
		t.Errorf("average_overall_rating = %v, want 4.5", stats.AverageOverallRating)
	}
}

func TestCourseStatsHandlerErrors(t *testing.T) {
	tests := []struct {
		name     string
		service  CourseStatter
		args     map[string]any
		wantText string
	}{
		{name: "missing id", service: stubCourseStats{}, args: map[string]any{}, wantText: "course_id must be greater than 0"},
		{name: "not found", service: stubCourseStats{err: courses.ErrNotFound}, args: map[string]any{"course_id": 9}, wantText: "Course with ID 9 not found"},
		{name: "bad type", service: stubCourseStats{}, args: map[string]any{"course_id": "nine"}, wantText: "invalid arguments"},
		{name: "not configured", service: nil, args: map[string]any{"course_id": 1}, wantText: "not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools := NewStatsTools(tt.service, nil)
			result, err := tools.CourseStatsHandler(context.Background(), callRequest("course_stats", tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected IsError")
			}
			if got := resultText(t, result); !strings.Contains(got, tt.wantText) {
				t.Errorf("text = %q, want substring %q", got, tt.wantText)
			}
		})
	}
}

func TestProfessorStatsHandler(t *testing.T) {
	tools := NewStatsTools(nil, stubProfessorStats{stats: professors.Stats{ProfessorID: 5, ProfessorName: "Ben Lim", TotalReviews: 0}})

	result, err := tools.ProfessorStatsHandler(context.Background(), callRequest("professor_stats", map[string]any{"professor_id": 5}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, `"professor_name":"Ben Lim"`) {
		t.Errorf("text = %s, want professor name", text)
	}
	if !strings.Contains(text, `"average_overall_rating":null`) {
		t.Errorf("text = %s, want null average for zero reviews", text)
	}

	notFound := NewStatsTools(nil, stubProfessorStats{err: professors.ErrNotFound})
	result, _ = notFound.ProfessorStatsHandler(context.Background(), callRequest("professor_stats", map[string]any{"professor_id": 77}))
	if !result.IsError || !strings.Contains(resultText(t, result), "Professor with ID 77 not found") {
		t.Errorf("expected not-found tool error, got %s", resultText(t, result))
	}
}

func TestListReviewsHandler(t *testing.T) {
	lister := &stubReviewLister{items: []reviews.Review{{ID: 1, CourseCode: "CS2030", University: "NUS", Semester: reviews.SemesterOne, Year: 2024}}}
	tools := NewReviewTools(lister)

	result, err := tools.ListReviewsHandler(context.Background(), callRequest("list_reviews", map[string]any{
		"course_code": " CS2030 ",
		"university":  "NUS",
		"limit":       5,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if lister.filters.CourseCode != "CS2030" || lister.filters.University != "NUS" {
		t.Errorf("filters = %+v", lister.filters)
	}
	if lister.page.Limit != 5 {
		t.Errorf("limit = %d, want 5", lister.page.Limit)
	}

	var items []reviews.Review
	if err := json.Unmarshal([]byte(resultText(t, result)), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].CourseCode != "CS2030" {
		t.Errorf("items = %+v", items)
	}
}

func TestListReviewsHandlerDefaultsAndLimits(t *testing.T) {
	lister := &stubReviewLister{}
	tools := NewReviewTools(lister)

	result, _ := tools.ListReviewsHandler(context.Background(), callRequest("list_reviews", nil))
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if lister.page.Limit != defaultReviewLimit {
		t.Errorf("limit = %d, want %d", lister.page.Limit, defaultReviewLimit)
	}
	if got := resultText(t, result); got != "[]" {
		t.Errorf("text = %q, want []", got)
	}

	result, _ = tools.ListReviewsHandler(context.Background(), callRequest("list_reviews", map[string]any{"limit": 500}))
	if !result.IsError {
		t.Error("expected IsError for limit above maximum")
	}
}
