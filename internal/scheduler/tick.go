package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rezkam/mono/internal/domain"
)

// TickOptions configures one call to Tick.
type TickOptions struct {
	WorkerID    string
	Concurrency int
}

// Tick is the main per-sweep operation (spec §4.3.4): it reads the due
// batch, partitions it into groups of Concurrency, and processes each
// group in parallel. The runtime retains no state between calls.
func (r *Runtime) Tick(ctx context.Context, opts TickOptions) error {
	workerID := opts.WorkerID
	if workerID == "" {
		workerID = "default"
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = r.defaultConcurrency
	}

	now := r.clock()
	due, err := r.store.GetDueJobs(ctx, now, r.maxDueBatch)
	if err != nil {
		return Transient(fmt.Errorf("get due jobs: %w", err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, job := range due {
		job := job
		g.Go(func() error {
			r.processJob(gctx, job.ID, workerID)
			return nil
		})
	}
	return g.Wait()
}

// processJob runs the per-job sequence in spec §4.3.5. Once the claimed job
// has been read back, every path writes a terminal or rescheduled state for
// it; if that read fails, the job keeps its lease until RecoverExpiredLeases
// reclaims it. Errors here are logged, never propagated, so one job's
// failure never aborts the tick for its siblings.
func (r *Runtime) processJob(ctx context.Context, jobID, workerID string) {
	now := r.clock()

	claimed, err := r.store.ClaimJob(ctx, jobID, workerID, r.leaseMs, now)
	if err != nil {
		slog.ErrorContext(ctx, "claim job failed", "job_id", jobID, "error", err)
		return
	}
	if !claimed {
		return
	}

	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		slog.ErrorContext(ctx, "read claimed job failed", "job_id", jobID, "error", err)
		return
	}

	hire, err := r.store.GetHire(ctx, job.HireID)
	if err != nil {
		r.failJob(ctx, job, "hire missing")
		return
	}

	if hire.Status == domain.HireStatusCanceled {
		r.failJob(ctx, job, "hire canceled")
		return
	}

	if hire.Status == domain.HireStatusPaused {
		job.Status = domain.JobStatusPending
		job.Lease = nil
		job.NextRunAt = now + int64(r.leaseMs)
		if err := r.store.PutJob(ctx, job); err != nil {
			slog.ErrorContext(ctx, "defer paused-hire job failed", "job_id", jobID, "error", err)
		}
		return
	}

	manifest, err := r.refreshManifestIfStale(ctx, &hire, now)
	if err != nil {
		r.retryJob(ctx, job, now, err.Error())
		return
	}
	if !manifest.HasEntrypoint(job.EntrypointKey) {
		r.failJob(ctx, job, fmt.Sprintf("Entrypoint %s not found", job.EntrypointKey))
		return
	}

	var walletRef *domain.WalletRef
	var walletHandle any
	if r.walletResolver != nil && hire.Wallet != nil {
		walletRef = hire.Wallet
		handle, err := r.walletResolver.Resolve(ctx, *hire.Wallet)
		if err != nil {
			r.retryJob(ctx, job, now, err.Error())
			return
		}
		walletHandle = handle
	}

	invokeErr := r.invoker.Invoke(ctx, InvocationArgs{
		Manifest:       manifest,
		EntrypointKey:  job.EntrypointKey,
		Input:          job.Input,
		JobID:          job.ID,
		IdempotencyKey: job.IdempotencyKey,
		WalletRef:      walletRef,
		WalletHandle:   walletHandle,
	})

	if invokeErr == nil {
		r.completeJob(ctx, job, now)
		return
	}
	r.retryJob(ctx, job, now, invokeErr.Error())
}

func (r *Runtime) completeJob(ctx context.Context, job domain.Job, now int64) {
	job.Lease = nil
	job.Attempts = 0
	job.LastError = nil

	switch job.Schedule.Kind {
	case domain.ScheduleKindOnce:
		job.Status = domain.JobStatusCompleted
	case domain.ScheduleKindInterval:
		job.Status = domain.JobStatusPending
		job.NextRunAt = now + job.Schedule.EveryMs
	}

	if err := r.store.PutJob(ctx, job); err != nil {
		slog.ErrorContext(ctx, "write completed job failed", "job_id", job.ID, "error", err)
	}
}

func (r *Runtime) failJob(ctx context.Context, job domain.Job, message string) {
	job.Status = domain.JobStatusFailed
	job.Lease = nil
	job.LastError = &message
	if err := r.store.PutJob(ctx, job); err != nil {
		slog.ErrorContext(ctx, "write failed job failed", "job_id", job.ID, "error", err)
	}
}

// retryJob applies spec §4.3.5 step 8: increment attempts, then either
// fail terminally or reschedule with jittered backoff.
func (r *Runtime) retryJob(ctx context.Context, job domain.Job, now int64, message string) {
	job.Attempts++
	job.Lease = nil
	job.LastError = &message

	if job.Attempts > job.MaxRetries {
		job.Status = domain.JobStatusFailed
	} else {
		job.Status = domain.JobStatusPending
		job.NextRunAt = now + backoffMs(job.Attempts)
	}

	if err := r.store.PutJob(ctx, job); err != nil {
		slog.ErrorContext(ctx, "write retried job failed", "job_id", job.ID, "error", err)
	}
}

// RecoverExpiredLeases reclaims jobs whose lease has expired (spec
// §4.3.6), returning the count recovered. Running it twice in succession
// with no newly-expired leases is a no-op the second time.
func (r *Runtime) RecoverExpiredLeases(ctx context.Context) (int, error) {
	now := r.clock()
	expired, err := r.store.GetExpiredLeases(ctx, now)
	if err != nil {
		return 0, Transient(fmt.Errorf("get expired leases: %w", err))
	}

	recovered := 0
	for _, job := range expired {
		job.Status = domain.JobStatusPending
		job.Lease = nil
		job.NextRunAt = now
		if err := r.store.PutJob(ctx, job); err != nil {
			slog.ErrorContext(ctx, "recover expired lease failed", "job_id", job.ID, "error", err)
			continue
		}
		recovered++
	}
	return recovered, nil
}
