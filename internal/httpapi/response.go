package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/mono/internal/domain"
)

// errorResponse is the standard error response shape.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: errorDetail{Code: code, Message: message}})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, "INVALID_REQUEST", message, http.StatusBadRequest)
}

func notFound(w http.ResponseWriter, resource string) {
	writeError(w, "NOT_FOUND", resource+" not found", http.StatusNotFound)
}

// internalError logs the real error server-side and returns a generic
// message to the client, matching the teacher's information-disclosure
// posture for 500s.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error", "error", err)
	writeError(w, "INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError)
}

// fromDomainError maps sentinel domain errors to HTTP status codes.
func fromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrHireNotFound):
		notFound(w, "hire")
	case errors.Is(err, domain.ErrJobNotFound):
		notFound(w, "job")
	case errors.Is(err, domain.ErrEntrypointNotFound):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrEmptyEntrypointKey):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrInvalidSchedule), errors.Is(err, domain.ErrCronUnsupported):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrHireCanceled):
		writeError(w, "CONFLICT", err.Error(), http.StatusConflict)
	default:
		internalError(w, r, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func ok(w http.ResponseWriter, data any)      { writeJSON(w, http.StatusOK, data) }
func created(w http.ResponseWriter, data any) { writeJSON(w, http.StatusCreated, data) }
func noContent(w http.ResponseWriter)         { w.WriteHeader(http.StatusNoContent) }
