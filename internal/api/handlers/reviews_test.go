package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/api/problem"
	"github.com/courserate-sg/server/internal/audit"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/courserate-sg/server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubReviewService struct {
	createFn      func(ctx context.Context, userID string, in reviews.CreateInput) (*reviews.Review, error)
	getFn         func(ctx context.Context, id int64) (*reviews.Review, error)
	listFn        func(ctx context.Context, filters reviews.Filters, page pagination.Page) ([]reviews.Review, error)
	listForUserFn func(ctx context.Context, userID string, page pagination.Page) ([]reviews.Review, error)
	statsFn       func(ctx context.Context, filters reviews.Filters) (reviews.Stats, error)
	updateFn      func(ctx context.Context, userID string, id int64, in reviews.UpdateInput) (*reviews.Review, error)
	deleteFn      func(ctx context.Context, userID string, id int64) error
}

func (s stubReviewService) Create(ctx context.Context, userID string, in reviews.CreateInput) (*reviews.Review, error) {
	return s.createFn(ctx, userID, in)
}

func (s stubReviewService) Get(ctx context.Context, id int64) (*reviews.Review, error) {
	return s.getFn(ctx, id)
}

func (s stubReviewService) List(ctx context.Context, filters reviews.Filters, page pagination.Page) ([]reviews.Review, error) {
	return s.listFn(ctx, filters, page)
}

func (s stubReviewService) ListForUser(ctx context.Context, userID string, page pagination.Page) ([]reviews.Review, error) {
	return s.listForUserFn(ctx, userID, page)
}

func (s stubReviewService) Stats(ctx context.Context, filters reviews.Filters) (reviews.Stats, error) {
	return s.statsFn(ctx, filters)
}

func (s stubReviewService) Update(ctx context.Context, userID string, id int64, in reviews.UpdateInput) (*reviews.Review, error) {
	return s.updateFn(ctx, userID, id, in)
}

func (s stubReviewService) Delete(ctx context.Context, userID string, id int64) error {
	return s.deleteFn(ctx, userID, id)
}

func TestReviewsCreate(t *testing.T) {
	var gotUser string
	var gotInput reviews.CreateInput
	h := NewReviewsHandler(stubReviewService{
		createFn: func(_ context.Context, userID string, in reviews.CreateInput) (*reviews.Review, error) {
			gotUser, gotInput = userID, in
			return &reviews.Review{ID: 7, CourseCode: in.CourseCode, University: in.University}, nil
		},
	}, "test")

	before := testutil.ToFloat64(metrics.ReviewMutations.WithLabelValues("create"))

	body := `{"overall_rating":5,"difficulty_rating":3,"workload_rating":2,"semester":"Fall","year":2024,"course_code":"CS1010","university":"NUS"}`
	req := asUser(newRequest(http.MethodPost, "/api/v1/reviews", body), "user-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "user-1", gotUser)
	require.Equal(t, "CS1010", gotInput.CourseCode)
	require.Equal(t, 5, gotInput.OverallRating)

	created := decodeBody[reviews.Review](t, rec)
	require.Equal(t, int64(7), created.ID)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ReviewMutations.WithLabelValues("create")))
}

func TestReviewsCreate_ValidationFailure(t *testing.T) {
	h := NewReviewsHandler(stubReviewService{
		createFn: func(context.Context, string, reviews.CreateInput) (*reviews.Review, error) {
			return nil, reviews.ValidationError{Fields: map[string]string{"overall_rating": "must be between 1 and 5"}}
		},
	}, "test")

	req := asUser(newRequest(http.MethodPost, "/api/v1/reviews", `{"overall_rating":9}`), "user-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	p := decodeProblem(t, rec)
	require.Equal(t, problem.TypeInvalidReview, p.Type)
	require.Equal(t, "must be between 1 and 5", p.Errors["overall_rating"])
}

func TestReviewsCreate_MalformedBody(t *testing.T) {
	called := false
	h := NewReviewsHandler(stubReviewService{
		createFn: func(context.Context, string, reviews.CreateInput) (*reviews.Review, error) {
			called = true
			return nil, nil
		},
	}, "test")

	cases := map[string]string{
		"not json":      `{"overall_rating":`,
		"trailing data": `{"overall_rating":5} {"x":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, asUser(newRequest(http.MethodPost, "/api/v1/reviews", body), "user-1"))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			p := decodeProblem(t, rec)
			require.Equal(t, problem.TypeValidation, p.Type)
		})
	}

	t.Run("empty body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/reviews", http.NoBody), "user-1")
		h.Create(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
	require.False(t, called)
}

func TestReviewsCreate_Unauthenticated(t *testing.T) {
	h := NewReviewsHandler(stubReviewService{
		createFn: func(_ context.Context, userID string, _ reviews.CreateInput) (*reviews.Review, error) {
			require.Empty(t, userID)
			return nil, reviews.ErrUnauthenticated
		},
	}, "test")

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/api/v1/reviews", `{}`))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestReviewsList(t *testing.T) {
	var gotFilters reviews.Filters
	var gotPage pagination.Page
	h := NewReviewsHandler(stubReviewService{
		listFn: func(_ context.Context, filters reviews.Filters, page pagination.Page) ([]reviews.Review, error) {
			gotFilters, gotPage = filters, page
			return nil, nil
		},
	}, "test")

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/v1/reviews?course_code=+cs1010+&university=NUS&skip=10&limit=5", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "cs1010", gotFilters.CourseCode)
	require.Equal(t, "NUS", gotFilters.University)
	require.Equal(t, pagination.Page{Skip: 10, Limit: 5}, gotPage)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestReviewsList_BadPagination(t *testing.T) {
	h := NewReviewsHandler(stubReviewService{}, "test")

	for _, query := range []string{"limit=0", "limit=101", "skip=-1", "skip=abc"} {
		t.Run(query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.List(rec, newRequest(http.MethodGet, "/api/v1/reviews?"+query, ""))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			p := decodeProblem(t, rec)
			require.Contains(t, p.Detail, "invalid")
		})
	}
}

func TestReviewsMine(t *testing.T) {
	h := NewReviewsHandler(stubReviewService{
		listForUserFn: func(_ context.Context, userID string, page pagination.Page) ([]reviews.Review, error) {
			require.Equal(t, "user-9", userID)
			require.Equal(t, pagination.Default(), page)
			return []reviews.Review{{ID: 1}, {ID: 2}}, nil
		},
	}, "test")

	rec := httptest.NewRecorder()
	h.Mine(rec, asUser(newRequest(http.MethodGet, "/api/v1/reviews/me", ""), "user-9"))

	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeBody[[]reviews.Review](t, rec)
	require.Len(t, items, 2)
}

func TestReviewsStats(t *testing.T) {
	avg := 4.5
	h := NewReviewsHandler(stubReviewService{
		statsFn: func(_ context.Context, filters reviews.Filters) (reviews.Stats, error) {
			require.Equal(t, "Alice Tan", filters.ProfessorName)
			return reviews.Stats{AvgOverallRating: &avg, ReviewCount: 2}, nil
		},
	}, "test")

	rec := httptest.NewRecorder()
	h.Stats(rec, newRequest(http.MethodGet, "/api/v1/reviews/stats?professor_name=Alice+Tan&limit=0", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"avg_overall_rating":4.5,"avg_difficulty_rating":null,"avg_workload_rating":null,"review_count":2}`, rec.Body.String())
}

func TestReviewsGet(t *testing.T) {
	h := NewReviewsHandler(stubReviewService{
		getFn: func(_ context.Context, id int64) (*reviews.Review, error) {
			if id == 3 {
				return &reviews.Review{ID: 3}, nil
			}
			return nil, reviews.ErrNotFound
		},
	}, "test")

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, withID(newRequest(http.MethodGet, "/api/v1/reviews/3", ""), "3"))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, withID(newRequest(http.MethodGet, "/api/v1/reviews/4", ""), "4"))
		require.Equal(t, http.StatusNotFound, rec.Code)
		p := decodeProblem(t, rec)
		require.Equal(t, "Review not found", p.Detail)
	})

	t.Run("bad id", func(t *testing.T) {
		for _, id := range []string{"abc", "0", "-2"} {
			rec := httptest.NewRecorder()
			h.Get(rec, withID(newRequest(http.MethodGet, "/api/v1/reviews/"+id, ""), id))
			require.Equal(t, http.StatusBadRequest, rec.Code, id)
		}
	})
}

func TestReviewsUpdate(t *testing.T) {
	rating := 2
	h := NewReviewsHandler(stubReviewService{
		updateFn: func(_ context.Context, userID string, id int64, in reviews.UpdateInput) (*reviews.Review, error) {
			switch userID {
			case "owner":
				require.Equal(t, int64(5), id)
				require.Equal(t, &rating, in.OverallRating)
				return &reviews.Review{ID: id, OverallRating: *in.OverallRating}, nil
			case "stranger":
				return nil, reviews.ErrForbidden
			}
			return nil, reviews.ErrNotFound
		},
	}, "test")

	before := testutil.ToFloat64(metrics.ReviewMutations.WithLabelValues("update"))

	rec := httptest.NewRecorder()
	h.Update(rec, asUser(withID(newRequest(http.MethodPut, "/api/v1/reviews/5", `{"overall_rating":2}`), "5"), "owner"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, decodeBody[reviews.Review](t, rec).OverallRating)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ReviewMutations.WithLabelValues("update")))

	rec = httptest.NewRecorder()
	h.Update(rec, asUser(withID(newRequest(http.MethodPut, "/api/v1/reviews/5", `{"overall_rating":2}`), "5"), "stranger"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "You can only update your own reviews", decodeProblem(t, rec).Detail)

	rec = httptest.NewRecorder()
	h.Update(rec, asUser(withID(newRequest(http.MethodPut, "/api/v1/reviews/5", `{"overall_rating":2}`), "5"), "nobody"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.ReviewMutations.WithLabelValues("update")))
}

func TestReviewsUpdateDecodesExplicitNull(t *testing.T) {
	var got reviews.UpdateInput
	h := NewReviewsHandler(stubReviewService{
		updateFn: func(_ context.Context, _ string, id int64, in reviews.UpdateInput) (*reviews.Review, error) {
			got = in
			return &reviews.Review{ID: id}, nil
		},
	}, "test")

	rec := httptest.NewRecorder()
	h.Update(rec, asUser(withID(newRequest(http.MethodPut, "/api/v1/reviews/5", `{"professor_name":null,"comment":"kept"}`), "5"), "owner"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, got.ProfessorName.Set)
	require.Nil(t, got.ProfessorName.Value)
	require.True(t, got.Comment.Set)
	require.Equal(t, "kept", *got.Comment.Value)
	require.Nil(t, got.OverallRating)
}

func TestReviewsDelete(t *testing.T) {
	h := NewReviewsHandler(stubReviewService{
		deleteFn: func(_ context.Context, userID string, id int64) error {
			switch userID {
			case "owner":
				return nil
			case "stranger":
				return reviews.ErrForbidden
			}
			return errors.New("connection reset")
		},
	}, "production")

	rec := httptest.NewRecorder()
	h.Delete(rec, asUser(withID(newRequest(http.MethodDelete, "/api/v1/reviews/5", ""), "5"), "owner"))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Delete(rec, asUser(withID(newRequest(http.MethodDelete, "/api/v1/reviews/5", ""), "5"), "stranger"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "You can only delete your own reviews", decodeProblem(t, rec).Detail)

	rec = httptest.NewRecorder()
	h.Delete(rec, asUser(withID(newRequest(http.MethodDelete, "/api/v1/reviews/5", ""), "5"), "other"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	p := decodeProblem(t, rec)
	require.NotContains(t, p.Detail, "connection reset")
}

func TestReviewsAuditTrail(t *testing.T) {
	var buf bytes.Buffer
	h := NewReviewsHandler(stubReviewService{
		updateFn: func(_ context.Context, userID string, id int64, _ reviews.UpdateInput) (*reviews.Review, error) {
			if userID == "owner" {
				return &reviews.Review{ID: id}, nil
			}
			return nil, reviews.ErrForbidden
		},
	}, "test")
	h.Audit = audit.NewLoggerWithZerolog(zerolog.New(&buf))

	rec := httptest.NewRecorder()
	h.Update(rec, asUser(withID(newRequest(http.MethodPut, "/api/v1/reviews/9", `{"comment":"ok"}`), "9"), "owner"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Update(rec, asUser(withID(newRequest(http.MethodPut, "/api/v1/reviews/9", `{"comment":"mine now"}`), "9"), "stranger"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entries [2]struct {
		Audit audit.Entry `json:"audit"`
	}
	for i, line := range lines {
		require.NoError(t, json.Unmarshal([]byte(line), &entries[i]))
	}
	require.Equal(t, "review.update", entries[0].Audit.Action)
	require.Equal(t, "owner", entries[0].Audit.UserID)
	require.Equal(t, "9", entries[0].Audit.ResourceID)
	require.Equal(t, audit.StatusSuccess, entries[0].Audit.Status)
	require.Equal(t, "stranger", entries[1].Audit.UserID)
	require.Equal(t, audit.StatusFailure, entries[1].Audit.Status)
}
