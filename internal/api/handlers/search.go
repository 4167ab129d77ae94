package handlers

import (
	"context"
	"net/http"

	"github.com/courserate-sg/server/internal/domain/search"
)

type SearchService interface {
	Professors(ctx context.Context, q string) ([]string, error)
	Courses(ctx context.Context, q string, exact bool) ([]search.CourseMatch, error)
	Global(ctx context.Context, q string) (search.GlobalResult, error)
	Stats(ctx context.Context) (search.Stats, error)
}

type SearchHandler struct {
	Service SearchService
	Env     string
}

func NewSearchHandler(service SearchService, env string) *SearchHandler {
	return &SearchHandler{Service: service, Env: env}
}

func (h *SearchHandler) Professors(w http.ResponseWriter, r *http.Request) {
	names, err := h.Service.Professors(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: nonNil(names)})
}

func (h *SearchHandler) Courses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	exact, err := search.ParseExact(query)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	matches, err := h.Service.Courses(r.Context(), query.Get("q"), exact)
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: nonNil(matches)})
}

func (h *SearchHandler) Global(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Global(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: result})
}

func (h *SearchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		writeError(w, r, h.Env, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: stats})
}
