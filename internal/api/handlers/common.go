package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/courserate-sg/server/internal/api/problem"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/courserate-sg/server/internal/validation"
)

// dataResponse wraps payloads that the API nests under "data".
type dataResponse struct {
	Data any `json:"data"`
}

var errMalformedJSON = errors.New("malformed JSON body")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a single JSON object into dst. Oversized bodies surface as
// *http.MaxBytesError; anything else unparseable wraps errMalformedJSON.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", errMalformedJSON)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return maxErr
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedJSON)
		}
		return fmt.Errorf("%w: %s", errMalformedJSON, err.Error())
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errMalformedJSON)
	}
	return nil
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	if raw == "" {
		return 0, validation.ParamError{Field: name, Message: "missing"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, validation.ParamError{Field: name, Message: "must be an integer"}
	}
	if id <= 0 {
		return 0, validation.ParamError{Field: name, Message: "must be greater than 0"}
	}
	return id, nil
}

// writeError maps request and service errors that every handler shares. Handlers check
// their own not-found and ownership errors first so the detail can name the resource.
func writeError(w http.ResponseWriter, r *http.Request, env string, err error) {
	var (
		paramErr validation.ParamError
		validErr reviews.ValidationError
		maxErr   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &paramErr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithDetail(err.Error()))
	case errors.As(err, &validErr):
		fields := make(map[string]any, len(validErr.Fields))
		for field, msg := range validErr.Fields {
			fields[field] = msg
		}
		problem.Write(w, r, http.StatusUnprocessableEntity, problem.TypeInvalidReview, "Invalid review", err, env,
			problem.WithDetail("Review validation failed"), problem.WithErrors(fields))
	case errors.As(err, &maxErr):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypePayloadTooLarge, "Payload too large", err, env,
			problem.WithDetail(fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit)))
	case errors.Is(err, errMalformedJSON):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithDetail(err.Error()))
	case errors.Is(err, reviews.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env,
			problem.WithDetail("Missing authorization header"))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
	}
}

func notFound(w http.ResponseWriter, r *http.Request, env string, err error, detail string) {
	problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env, problem.WithDetail(detail))
}

func forbidden(w http.ResponseWriter, r *http.Request, env string, err error, detail string) {
	problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", err, env, problem.WithDetail(detail))
}

// nonNil keeps empty listings serialized as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
