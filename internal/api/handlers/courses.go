package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/courses"
	"github.com/courserate-sg/server/internal/domain/reviews"
)

type CourseService interface {
	List(ctx context.Context, filters courses.Filters, page pagination.Page) ([]courses.Course, error)
	Get(ctx context.Context, id int64) (*courses.Course, error)
	Reviews(ctx context.Context, id int64, page pagination.Page) ([]reviews.Review, error)
	Stats(ctx context.Context, id int64) (courses.Stats, error)
	Professors(ctx context.Context, id int64) ([]courses.Professor, error)
}

type CoursesHandler struct {
	Service CourseService
	Env     string
}

func NewCoursesHandler(service CourseService, env string) *CoursesHandler {
	return &CoursesHandler{Service: service, Env: env}
}

func (h *CoursesHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, page, err := courses.ParseFilters(r.URL.Query())
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

func (h *CoursesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	course, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CoursesHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	page, err := pagination.Parse(r.URL.Query())
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	items, err := h.Service.Reviews(r.Context(), id, page)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (h *CoursesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	stats, err := h.Service.Stats(r.Context(), id)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *CoursesHandler) Professors(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	items, err := h.Service.Professors(r.Context(), id)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: nonNil(items)})
}

func (h *CoursesHandler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Env, err)
		return 0, false
	}
	return id, true
}

func (h *CoursesHandler) fail(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, courses.ErrNotFound) {
		notFound(w, r, h.Env, err, fmt.Sprintf("Course with ID %d not found", id))
		return
	}
	writeError(w, r, h.Env, err)
}
