package scheduler

import (
	"context"
	"fmt"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/ptr"
)

// CreateHireRequest is the input to CreateHire (spec §4.3.1).
type CreateHireRequest struct {
	ManifestURL    string
	EntrypointKey  string
	Schedule       domain.Schedule
	JobInput       any
	Wallet         *domain.WalletRef
	MaxRetries     *int
	IdempotencyKey *string
	Metadata       map[string]any
}

// CreateHire validates the schedule, fetches the manifest, and writes a
// new hire and its first job. If the job write fails, the hire is deleted
// and the error surfaced (spec §3 rollback invariant).
func (r *Runtime) CreateHire(ctx context.Context, req CreateHireRequest) (domain.Hire, domain.Job, error) {
	if err := req.Schedule.Validate(); err != nil {
		return domain.Hire{}, domain.Job{}, err
	}

	entrypointKey, err := domain.NewEntrypointKey(req.EntrypointKey)
	if err != nil {
		return domain.Hire{}, domain.Job{}, err
	}

	manifest, err := r.manifestFetcher.Fetch(ctx, req.ManifestURL)
	if err != nil {
		return domain.Hire{}, domain.Job{}, fmt.Errorf("fetch manifest: %w", err)
	}
	if !manifest.HasEntrypoint(entrypointKey.String()) {
		return domain.Hire{}, domain.Job{}, domain.ErrEntrypointNotFound
	}

	now := r.clock()
	hire := domain.Hire{
		ID:     newID(),
		Status: domain.HireStatusActive,
		Agent: domain.AgentRef{
			ManifestURL: req.ManifestURL,
			Card:        &manifest,
			CachedAt:    &now,
		},
		Wallet:   req.Wallet,
		Metadata: req.Metadata,
	}

	maxRetries := ptr.Deref(req.MaxRetries, r.defaultMaxRetries)

	job := domain.Job{
		ID:             newID(),
		HireID:         hire.ID,
		EntrypointKey:  entrypointKey.String(),
		Input:          req.JobInput,
		Schedule:       req.Schedule,
		NextRunAt:      initialNextRunAt(req.Schedule, now),
		MaxRetries:     maxRetries,
		Status:         domain.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := r.store.PutHire(ctx, hire); err != nil {
		return domain.Hire{}, domain.Job{}, fmt.Errorf("put hire: %w", err)
	}
	if err := r.store.PutJob(ctx, job); err != nil {
		_ = r.store.DeleteHire(ctx, hire.ID)
		return domain.Hire{}, domain.Job{}, fmt.Errorf("put job: %w", err)
	}

	return hire, job, nil
}

// AddJobRequest is the input to AddJob (spec §4.3.2).
type AddJobRequest struct {
	HireID         string
	EntrypointKey  string
	Schedule       domain.Schedule
	JobInput       any
	MaxRetries     *int
	IdempotencyKey *string
}

// AddJob registers a new job against an existing, non-canceled hire,
// refreshing the manifest cache first if it has gone stale.
func (r *Runtime) AddJob(ctx context.Context, req AddJobRequest) (domain.Job, error) {
	hire, err := r.store.GetHire(ctx, req.HireID)
	if err != nil {
		return domain.Job{}, err
	}
	if hire.Status == domain.HireStatusCanceled {
		return domain.Job{}, domain.ErrHireCanceled
	}

	entrypointKey, err := domain.NewEntrypointKey(req.EntrypointKey)
	if err != nil {
		return domain.Job{}, err
	}

	now := r.clock()
	manifest, err := r.refreshManifestIfStale(ctx, &hire, now)
	if err != nil {
		return domain.Job{}, fmt.Errorf("refresh manifest: %w", err)
	}

	if !manifest.HasEntrypoint(entrypointKey.String()) {
		return domain.Job{}, domain.ErrEntrypointNotFound
	}
	if err := req.Schedule.Validate(); err != nil {
		return domain.Job{}, err
	}

	maxRetries := ptr.Deref(req.MaxRetries, r.defaultMaxRetries)

	job := domain.Job{
		ID:             newID(),
		HireID:         hire.ID,
		EntrypointKey:  entrypointKey.String(),
		Input:          req.JobInput,
		Schedule:       req.Schedule,
		NextRunAt:      initialNextRunAt(req.Schedule, now),
		MaxRetries:     maxRetries,
		Status:         domain.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
	}
	if err := r.store.PutJob(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("put job: %w", err)
	}
	return job, nil
}

// refreshManifestIfStale re-fetches and persists hire.Agent.Card if the
// cache has exceeded manifestTTLMs. Returns the (possibly refreshed)
// manifest either way.
func (r *Runtime) refreshManifestIfStale(ctx context.Context, hire *domain.Hire, now int64) (domain.AgentManifest, error) {
	stale := hire.Agent.CachedAt == nil || now-*hire.Agent.CachedAt >= r.manifestTTLMs
	if !stale {
		return *hire.Agent.Card, nil
	}

	manifest, err := r.manifestFetcher.Fetch(ctx, hire.Agent.ManifestURL)
	if err != nil {
		return domain.AgentManifest{}, err
	}
	hire.Agent.Card = &manifest
	hire.Agent.CachedAt = &now
	if err := r.store.PutHire(ctx, *hire); err != nil {
		return domain.AgentManifest{}, err
	}
	return manifest, nil
}

func initialNextRunAt(s domain.Schedule, now int64) int64 {
	if s.Kind == domain.ScheduleKindOnce {
		return s.At
	}
	return now
}

// PauseHire transitions an active hire to paused (spec §4.3.3).
func (r *Runtime) PauseHire(ctx context.Context, hireID string) (ControlResult, error) {
	hire, err := r.store.GetHire(ctx, hireID)
	if err != nil {
		return fail(fmt.Sprintf("Hire %s not found", hireID)), nil
	}
	switch hire.Status {
	case domain.HireStatusCanceled:
		return fail(fmt.Sprintf("Hire %s is canceled", hireID)), nil
	case domain.HireStatusPaused:
		return fail(fmt.Sprintf("Hire %s is already paused", hireID)), nil
	}
	hire.Status = domain.HireStatusPaused
	if err := r.store.PutHire(ctx, hire); err != nil {
		return ControlResult{}, err
	}
	return ok(), nil
}

// ResumeHire transitions a paused hire to active (spec §4.3.3).
func (r *Runtime) ResumeHire(ctx context.Context, hireID string) (ControlResult, error) {
	hire, err := r.store.GetHire(ctx, hireID)
	if err != nil {
		return fail(fmt.Sprintf("Hire %s not found", hireID)), nil
	}
	switch hire.Status {
	case domain.HireStatusCanceled:
		return fail(fmt.Sprintf("Hire %s is canceled", hireID)), nil
	case domain.HireStatusActive:
		return fail(fmt.Sprintf("Hire %s is already active", hireID)), nil
	}
	hire.Status = domain.HireStatusActive
	if err := r.store.PutHire(ctx, hire); err != nil {
		return ControlResult{}, err
	}
	return ok(), nil
}

// CancelHire transitions any non-canceled hire to canceled, terminally
// (spec §3, §4.3.3).
func (r *Runtime) CancelHire(ctx context.Context, hireID string) (ControlResult, error) {
	hire, err := r.store.GetHire(ctx, hireID)
	if err != nil {
		return fail(fmt.Sprintf("Hire %s not found", hireID)), nil
	}
	if hire.Status == domain.HireStatusCanceled {
		return fail(fmt.Sprintf("Hire %s is already canceled", hireID)), nil
	}
	hire.Status = domain.HireStatusCanceled
	if err := r.store.PutHire(ctx, hire); err != nil {
		return ControlResult{}, err
	}
	return ok(), nil
}

// PauseJob clears the job's lease (if any) and moves it to paused,
// rejecting terminal and already-paused jobs (spec §4.3.3).
func (r *Runtime) PauseJob(ctx context.Context, jobID string) (ControlResult, error) {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return fail(fmt.Sprintf("Job %s not found", jobID)), nil
	}
	switch job.Status {
	case domain.JobStatusCompleted:
		return fail(fmt.Sprintf("Job %s is completed and cannot be paused", jobID)), nil
	case domain.JobStatusFailed:
		return fail(fmt.Sprintf("Job %s is failed and cannot be paused", jobID)), nil
	case domain.JobStatusPaused:
		return fail(fmt.Sprintf("Job %s is already paused", jobID)), nil
	}
	job.Status = domain.JobStatusPaused
	job.Lease = nil
	if err := r.store.PutJob(ctx, job); err != nil {
		return ControlResult{}, err
	}
	return ok(), nil
}

// ResumeJob moves a paused job back to pending, optionally overriding
// nextRunAt (spec §4.3.3).
func (r *Runtime) ResumeJob(ctx context.Context, jobID string, nextRunAt *int64) (ControlResult, error) {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return fail(fmt.Sprintf("Job %s not found", jobID)), nil
	}
	switch job.Status {
	case domain.JobStatusCompleted:
		return fail(fmt.Sprintf("Job %s is completed and cannot be resumed", jobID)), nil
	case domain.JobStatusFailed:
		return fail(fmt.Sprintf("Job %s is failed and cannot be resumed", jobID)), nil
	case domain.JobStatusPending, domain.JobStatusLeased:
		return fail(fmt.Sprintf("Job %s is already active", jobID)), nil
	}
	job.NextRunAt = ptr.Deref(nextRunAt, r.clock())
	job.Status = domain.JobStatusPending
	if err := r.store.PutJob(ctx, job); err != nil {
		return ControlResult{}, err
	}
	return ok(), nil
}
