package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rezkam/mono/internal/scheduler"
)

// DefaultMaxBodyBytes bounds request bodies absent a configured override.
const DefaultMaxBodyBytes = 1 << 20 // 1MB

// NewRouter builds the chi router serving the scheduler's HTTP surface
// (SPEC_FULL §12's read-only listing endpoints plus the runtime's control
// operations), with the same baseline middleware stack the teacher wires
// into every service router.
func NewRouter(runtime *scheduler.Runtime, maxBodyBytes int64) *chi.Mux {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	h := NewHandler(runtime)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBodyBytes))

	r.Get("/health", h.Health)

	r.Route("/hires", func(r chi.Router) {
		r.Post("/", h.CreateHire)
		r.Post("/{hireID}/jobs", h.AddJob)
		r.Get("/{hireID}/jobs/failed", h.ListFailedJobs)
		r.Post("/{hireID}/pause", h.PauseHire)
		r.Post("/{hireID}/resume", h.ResumeHire)
		r.Post("/{hireID}/cancel", h.CancelHire)
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/{jobID}/pause", h.PauseJob)
		r.Post("/{jobID}/resume", h.ResumeJob)
	})

	return r
}
