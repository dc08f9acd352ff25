// Package store defines the persistence contract the scheduler runtime
// depends on. The interface is owned here, by the consumer, not by any
// storage provider package — the same Dependency Inversion / Interface
// Segregation split the teacher's worker package uses for its Repository.
package store

import (
	"context"

	"github.com/rezkam/mono/internal/domain"
)

// Store is the scheduler's sole concurrency boundary. Implementations
// backed by a transactional database MUST perform ClaimJob as a
// conditional update inside a single transaction; implementations backed
// by an in-process map MUST serialize by a per-store lock. Callers never
// hold a store lock across an invoker call.
type Store interface {
	// PutHire upserts a hire record.
	PutHire(ctx context.Context, h domain.Hire) error

	// GetHire reads a hire by ID. Returns domain.ErrHireNotFound if absent.
	GetHire(ctx context.Context, id string) (domain.Hire, error)

	// DeleteHire removes a hire. Only ever called as compensation for a
	// failed job write during createHire.
	DeleteHire(ctx context.Context, id string) error

	// PutJob upserts a job record.
	PutJob(ctx context.Context, j domain.Job) error

	// GetJob reads a job by ID. Returns domain.ErrJobNotFound if absent.
	GetJob(ctx context.Context, id string) (domain.Job, error)

	// GetDueJobs returns at most limit jobs with status=pending and
	// nextRunAt <= nowMs, ordered oldest-due first.
	GetDueJobs(ctx context.Context, nowMs int64, limit int) ([]domain.Job, error)

	// ClaimJob is the single atomic primitive guaranteeing at-most-one
	// worker executes a given job at a given time. It succeeds (persists
	// the leased transition and returns true) iff the job currently has
	// status=pending and nextRunAt <= nowMs; otherwise the store is left
	// unchanged and it returns false.
	ClaimJob(ctx context.Context, jobID, workerID string, leaseMs int, nowMs int64) (bool, error)

	// GetExpiredLeases returns every job with status=leased and
	// lease.expiresAt <= nowMs.
	GetExpiredLeases(ctx context.Context, nowMs int64) ([]domain.Job, error)

	// ListHires is an additive read-only convenience for operator surfaces
	// (not part of the spec's core contract).
	ListHires(ctx context.Context, limit, offset int) ([]domain.Hire, error)

	// ListJobsByHire is an additive read-only convenience for operator
	// surfaces (not part of the spec's core contract).
	ListJobsByHire(ctx context.Context, hireID string, limit, offset int) ([]domain.Job, error)

	// Close releases any resources held by the store.
	Close() error
}
