package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/courserate-sg/server/internal/api/pagination"
	"github.com/courserate-sg/server/internal/domain/professors"
	"github.com/courserate-sg/server/internal/domain/reviews"
)

type ProfessorService interface {
	List(ctx context.Context, filters professors.Filters, page pagination.Page) ([]professors.Professor, error)
	Get(ctx context.Context, id int64) (*professors.Professor, error)
	Reviews(ctx context.Context, id int64, page pagination.Page) ([]reviews.Review, error)
	Stats(ctx context.Context, id int64) (professors.Stats, error)
}

type ProfessorsHandler struct {
	Service ProfessorService
	Env     string
}

func NewProfessorsHandler(service ProfessorService, env string) *ProfessorsHandler {
	return &ProfessorsHandler{Service: service, Env: env}
}

func (h *ProfessorsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, page, err := professors.ParseFilters(r.URL.Query())
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

func (h *ProfessorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	professor, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, professor)
}

func (h *ProfessorsHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Env, err)
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

func (h *ProfessorsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	stats, err := h.Service.Stats(r.Context(), id)
	if err != nil {
		h.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ProfessorsHandler) fail(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, professors.ErrNotFound) {
		notFound(w, r, h.Env, err, fmt.Sprintf("Professor with ID %d not found", id))
		return
	}
	writeError(w, r, h.Env, err)
}
