package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/scheduler"
)

// Handler wires the scheduler runtime to HTTP routes.
type Handler struct {
	runtime *scheduler.Runtime
}

// NewHandler builds a Handler bound to runtime.
func NewHandler(runtime *scheduler.Runtime) *Handler {
	return &Handler{runtime: runtime}
}

type createHireRequest struct {
	ManifestURL    string            `json:"manifestUrl"`
	EntrypointKey  string            `json:"entrypointKey"`
	Schedule       scheduleWire      `json:"schedule"`
	JobInput       any               `json:"jobInput,omitempty"`
	Wallet         *domain.WalletRef `json:"wallet,omitempty"`
	MaxRetries     *int              `json:"maxRetries,omitempty"`
	IdempotencyKey *string           `json:"idempotencyKey,omitempty"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
}

type scheduleWire struct {
	Kind    string `json:"kind"`
	At      int64  `json:"at,omitempty"`
	EveryMs int64  `json:"everyMs,omitempty"`
}

func (s scheduleWire) toDomain() domain.Schedule {
	switch domain.ScheduleKind(s.Kind) {
	case domain.ScheduleKindOnce:
		return domain.OnceSchedule(s.At)
	case domain.ScheduleKindInterval:
		return domain.IntervalSchedule(s.EveryMs)
	default:
		return domain.Schedule{Kind: domain.ScheduleKind(s.Kind)}
	}
}

// CreateHire handles POST /hires.
func (h *Handler) CreateHire(w http.ResponseWriter, r *http.Request) {
	var req createHireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	hire, job, err := h.runtime.CreateHire(r.Context(), scheduler.CreateHireRequest{
		ManifestURL:    req.ManifestURL,
		EntrypointKey:  req.EntrypointKey,
		Schedule:       req.Schedule.toDomain(),
		JobInput:       req.JobInput,
		Wallet:         req.Wallet,
		MaxRetries:     req.MaxRetries,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	})
	if err != nil {
		fromDomainError(w, r, err)
		return
	}

	created(w, map[string]any{"hire": hire, "job": job})
}

type addJobRequest struct {
	EntrypointKey  string       `json:"entrypointKey"`
	Schedule       scheduleWire `json:"schedule"`
	JobInput       any          `json:"jobInput,omitempty"`
	MaxRetries     *int         `json:"maxRetries,omitempty"`
	IdempotencyKey *string      `json:"idempotencyKey,omitempty"`
}

// AddJob handles POST /hires/{hireID}/jobs.
func (h *Handler) AddJob(w http.ResponseWriter, r *http.Request) {
	hireID := chi.URLParam(r, "hireID")
	if err := domain.ValidateID(hireID); err != nil {
		fromDomainError(w, r, err)
		return
	}

	var req addJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	job, err := h.runtime.AddJob(r.Context(), scheduler.AddJobRequest{
		HireID:         hireID,
		EntrypointKey:  req.EntrypointKey,
		Schedule:       req.Schedule.toDomain(),
		JobInput:       req.JobInput,
		MaxRetries:     req.MaxRetries,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		fromDomainError(w, r, err)
		return
	}

	created(w, job)
}

// PauseHire handles POST /hires/{hireID}/pause.
func (h *Handler) PauseHire(w http.ResponseWriter, r *http.Request) {
	hireID := chi.URLParam(r, "hireID")
	if err := domain.ValidateID(hireID); err != nil {
		fromDomainError(w, r, err)
		return
	}
	result, err := h.runtime.PauseHire(r.Context(), hireID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	ok(w, result)
}

// ResumeHire handles POST /hires/{hireID}/resume.
func (h *Handler) ResumeHire(w http.ResponseWriter, r *http.Request) {
	hireID := chi.URLParam(r, "hireID")
	if err := domain.ValidateID(hireID); err != nil {
		fromDomainError(w, r, err)
		return
	}
	result, err := h.runtime.ResumeHire(r.Context(), hireID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	ok(w, result)
}

// CancelHire handles POST /hires/{hireID}/cancel.
func (h *Handler) CancelHire(w http.ResponseWriter, r *http.Request) {
	hireID := chi.URLParam(r, "hireID")
	if err := domain.ValidateID(hireID); err != nil {
		fromDomainError(w, r, err)
		return
	}
	result, err := h.runtime.CancelHire(r.Context(), hireID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	ok(w, result)
}

// PauseJob handles POST /jobs/{jobID}/pause.
func (h *Handler) PauseJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := domain.ValidateID(jobID); err != nil {
		fromDomainError(w, r, err)
		return
	}
	result, err := h.runtime.PauseJob(r.Context(), jobID)
	if err != nil {
		internalError(w, r, err)
		return
	}
	ok(w, result)
}

type resumeJobRequest struct {
	NextRunAt *int64 `json:"nextRunAt,omitempty"`
}

// ResumeJob handles POST /jobs/{jobID}/resume.
func (h *Handler) ResumeJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := domain.ValidateID(jobID); err != nil {
		fromDomainError(w, r, err)
		return
	}

	var req resumeJobRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}

	result, err := h.runtime.ResumeJob(r.Context(), jobID, req.NextRunAt)
	if err != nil {
		internalError(w, r, err)
		return
	}
	ok(w, result)
}

// ListFailedJobs handles GET /hires/{hireID}/jobs/failed.
func (h *Handler) ListFailedJobs(w http.ResponseWriter, r *http.Request) {
	hireID := chi.URLParam(r, "hireID")
	if err := domain.ValidateID(hireID); err != nil {
		fromDomainError(w, r, err)
		return
	}

	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			limit = n
		}
	}

	jobs, err := h.runtime.ListFailedJobs(r.Context(), hireID, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "list failed jobs failed", "hire_id", hireID, "error", err)
		internalError(w, r, err)
		return
	}
	ok(w, map[string]any{"jobs": jobs})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]string{"status": "ok"})
}
