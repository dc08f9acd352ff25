// Package workerloop drives the scheduler runtime on a fixed period (spec
// §4.4): a tick ticker claims and executes due jobs, and a separate
// recovery ticker reclaims jobs whose lease expired without completing.
package workerloop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rezkam/mono/internal/scheduler"
)

// ExclusiveRunLocker is an optional capability a Store implementation may
// provide so that only one worker process in a fleet runs the lease-recovery
// sweep per period (SPEC_FULL §12). It is deliberately not part of the
// scheduler's Store contract (spec §4.1): a Loop works correctly, just with
// redundant recovery scans, against a store that doesn't implement it.
type ExclusiveRunLocker interface {
	TryAcquireExclusiveRun(ctx context.Context, runType, holderID string, leaseDuration time.Duration) (release func(), acquired bool, err error)
}

const recoveryRunType = "recover_expired_leases"

// Loop runs a scheduler.Runtime's Tick and RecoverExpiredLeases on their own
// tickers until Stop is called or ctx is canceled.
type Loop struct {
	runtime  *scheduler.Runtime
	locker   ExclusiveRunLocker
	workerID string

	tickInterval     time.Duration
	recoveryInterval time.Duration
	concurrency      int
	leaseDuration    time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Loop.
type Option func(*Loop)

// WithTickInterval sets how often the loop claims and runs due jobs.
func WithTickInterval(d time.Duration) Option {
	return func(l *Loop) { l.tickInterval = d }
}

// WithRecoveryInterval sets how often the loop reclaims expired leases.
func WithRecoveryInterval(d time.Duration) Option {
	return func(l *Loop) { l.recoveryInterval = d }
}

// WithConcurrency bounds how many jobs one tick processes in parallel.
func WithConcurrency(n int) Option {
	return func(l *Loop) { l.concurrency = n }
}

// WithExclusiveRunLocker wires an optional store capability so only one
// worker in a fleet runs the recovery sweep per period.
func WithExclusiveRunLocker(locker ExclusiveRunLocker) Option {
	return func(l *Loop) { l.locker = locker }
}

// New builds a Loop bound to runtime, identified by workerID for claims and
// for the exclusive-run lease (if configured).
func New(runtime *scheduler.Runtime, workerID string, opts ...Option) *Loop {
	l := &Loop{
		runtime:          runtime,
		workerID:         workerID,
		tickInterval:     1 * time.Second,
		recoveryInterval: 30 * time.Second,
		concurrency:      5,
		leaseDuration:    10 * time.Second,
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start runs the tick and recovery tickers until ctx is canceled or Stop is
// called, waiting for any in-flight iteration to finish before returning.
func (l *Loop) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "worker loop started",
		"worker_id", l.workerID, "tick_interval", l.tickInterval, "recovery_interval", l.recoveryInterval)

	tickTicker := time.NewTicker(l.tickInterval)
	recoveryTicker := time.NewTicker(l.recoveryInterval)
	defer tickTicker.Stop()
	defer recoveryTicker.Stop()

	for {
		select {
		case <-tickTicker.C:
			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				if err := l.runtime.Tick(ctx, scheduler.TickOptions{
					WorkerID:    l.workerID,
					Concurrency: l.concurrency,
				}); err != nil {
					slog.ErrorContext(ctx, "tick failed", "worker_id", l.workerID, "error", err)
				}
			}()
		case <-recoveryTicker.C:
			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				l.runRecovery(ctx)
			}()
		case <-ctx.Done():
			slog.InfoContext(ctx, "worker loop context canceled, shutting down", "worker_id", l.workerID)
			l.wg.Wait()
			return ctx.Err()
		case <-l.done:
			slog.InfoContext(ctx, "worker loop stopped", "worker_id", l.workerID)
			l.wg.Wait()
			return nil
		}
	}
}

// Stop signals Start to return once any in-flight iteration completes.
func (l *Loop) Stop() {
	close(l.done)
}

func (l *Loop) runRecovery(ctx context.Context) {
	if l.locker != nil {
		release, acquired, err := l.locker.TryAcquireExclusiveRun(ctx, recoveryRunType, l.workerID, l.recoveryInterval)
		if err != nil {
			slog.ErrorContext(ctx, "acquire recovery lease failed", "worker_id", l.workerID, "error", err)
			return
		}
		if !acquired {
			return
		}
		defer release()
	}

	n, err := l.runtime.RecoverExpiredLeases(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "recover expired leases failed", "worker_id", l.workerID, "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "recovered expired leases", "worker_id", l.workerID, "count", n)
	}
}
