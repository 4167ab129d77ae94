package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/universities"
)

type UniversityService interface {
	List(ctx context.Context, filters universities.Filters, page pagination.Page) ([]universities.University, error)
	Get(ctx context.Context, id int64) (*universities.University, error)
}

type UniversitiesHandler struct {
	Service UniversityService
	Env     string
}

func NewUniversitiesHandler(service UniversityService, env string) *UniversitiesHandler {
	return &UniversitiesHandler{Service: service, Env: env}
}

func (h *UniversitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, page, err := universities.ParseFilters(r.URL.Query())
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

func (h *UniversitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	university, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, universities.ErrNotFound) {
			notFound(w, r, h.Env, err, fmt.Sprintf("University with ID %d not found", id))
			return
		}
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, university)
}
