package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/courserate-sg/server/internal/api/middleware"
	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/audit"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/courserate-sg/server/internal/metrics"
)

type ReviewService interface {
	Create(ctx context.Context, userID string, in reviews.CreateInput) (*reviews.Review, error)
	Get(ctx context.Context, id int64) (*reviews.Review, error)
	List(ctx context.Context, filters reviews.Filters, page pagination.Page) ([]reviews.Review, error)
	ListForUser(ctx context.Context, userID string, page pagination.Page) ([]reviews.Review, error)
	Stats(ctx context.Context, filters reviews.Filters) (reviews.Stats, error)
	Update(ctx context.Context, userID string, id int64, in reviews.UpdateInput) (*reviews.Review, error)
	Delete(ctx context.Context, userID string, id int64) error
}

type ReviewsHandler struct {
	Service ReviewService
	Env     string
	// Audit records successful and refused mutations; nil disables it.
	Audit *audit.Logger
}

func NewReviewsHandler(service ReviewService, env string) *ReviewsHandler {
	return &ReviewsHandler{Service: service, Env: env}
}

func (h *ReviewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in reviews.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Env, err)
		return
	}

	review, err := h.Service.Create(r.Context(), currentUserID(r), in)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}

	metrics.ReviewMutations.WithLabelValues("create").Inc()
	h.record(r, "create", review.ID, audit.StatusSuccess, map[string]string{
		"course_code": review.CourseCode,
		"university":  review.University,
	})
	writeJSON(w, http.StatusCreated, review)
}

func (h *ReviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, page, err := reviews.ParseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	items, err := h.Service.List(r.Context(), filters, page)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// Mine lists the caller's own reviews.
func (h *ReviewsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.Parse(r.URL.Query())
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	items, err := h.Service.ListForUser(r.Context(), currentUserID(r), page)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (h *ReviewsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	// Stats ignores skip/limit, so pagination errors do not apply here.
	filters, _, _ := reviews.ParseFilters(r.URL.Query())
	stats, err := h.Service.Stats(r.Context(), filters)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ReviewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	review, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, reviews.ErrNotFound) {
			notFound(w, r, h.Env, err, "Review not found")
			return
		}
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	var in reviews.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Env, err)
		return
	}

	review, err := h.Service.Update(r.Context(), currentUserID(r), id, in)
	if err != nil {
		h.writeMutationError(w, r, err, id, "update")
		return
	}

	metrics.ReviewMutations.WithLabelValues("update").Inc()
	h.record(r, "update", id, audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}

	if err := h.Service.Delete(r.Context(), currentUserID(r), id); err != nil {
		h.writeMutationError(w, r, err, id, "delete")
		return
	}

	metrics.ReviewMutations.WithLabelValues("delete").Inc()
	h.record(r, "delete", id, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewsHandler) writeMutationError(w http.ResponseWriter, r *http.Request, err error, id int64, verb string) {
	switch {
	case errors.Is(err, reviews.ErrNotFound):
		notFound(w, r, h.Env, err, "Review not found")
	case errors.Is(err, reviews.ErrForbidden):
		h.record(r, verb, id, audit.StatusFailure, map[string]string{"reason": "not owner"})
		forbidden(w, r, h.Env, err, fmt.Sprintf("You can only %s your own reviews", verb))
	default:
		writeError(w, r, h.Env, err)
	}
}

func (h *ReviewsHandler) record(r *http.Request, verb string, id int64, status string, details map[string]string) {
	h.Audit.LogFromRequest(r, audit.Entry{
		Action:       "review." + verb,
		UserID:       currentUserID(r),
		ResourceType: "review",
		ResourceID:   strconv.FormatInt(id, 10),
		Status:       status,
		Details:      details,
	})
}

func currentUserID(r *http.Request) string {
	if user := middleware.CurrentUser(r); user != nil {
		return user.UserID
	}
	return ""
}
