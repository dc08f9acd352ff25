package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/store"
	"github.com/rezkam/mono/internal/store/memory"
)

func fakeManifest(entrypoints ...string) ManifestFetcher {
	m := domain.AgentManifest{Entrypoints: map[string]domain.EntrypointDescriptor{}}
	for _, e := range entrypoints {
		m.Entrypoints[e] = domain.EntrypointDescriptor{}
	}
	return ManifestFetcherFunc(func(context.Context, string) (domain.AgentManifest, error) {
		return m, nil
	})
}

func newTestRuntime(t *testing.T, clockMs int64, invoke func(ctx context.Context, args InvocationArgs) error) (*Runtime, store.Store, *int64) {
	t.Helper()
	now := clockMs
	clock := func() int64 { return now }
	st := memory.New()

	rt, err := New(Config{
		Store:           st,
		Invoker:         InvokerFunc(invoke),
		ManifestFetcher: fakeManifest("run"),
		Clock:           clock,
	})
	require.NoError(t, err)
	return rt, st, &now
}

func TestNewRequiresInvoker(t *testing.T) {
	_, err := New(Config{Store: memory.New()})
	assert.ErrorIs(t, err, ErrNoInvoker)
}

// Scenario 1: Once, immediate success.
func TestOnceImmediateSuccess(t *testing.T) {
	ctx := context.Background()
	calls := 0
	rt, st, now := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error {
		calls++
		return nil
	})

	hire, job, err := rt.CreateHire(ctx, CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.OnceSchedule(*now),
	})
	require.NoError(t, err)
	require.Equal(t, domain.HireStatusActive, hire.Status)

	require.NoError(t, rt.Tick(ctx, TickOptions{WorkerID: "w1"}))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, 0, got.Attempts)
}

// Scenario 2: Interval reschedule.
func TestIntervalReschedule(t *testing.T) {
	ctx := context.Background()
	rt, st, now := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error { return nil })

	_, job, err := rt.CreateHire(ctx, CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.IntervalSchedule(60_000),
	})
	require.NoError(t, err)

	require.NoError(t, rt.Tick(ctx, TickOptions{WorkerID: "w1"}))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Equal(t, *now+60_000, got.NextRunAt)
	assert.Equal(t, 0, got.Attempts)
}

// Scenario 3: Retry then success.
func TestRetryThenSuccess(t *testing.T) {
	ctx := context.Background()
	attempt := 0
	rt, st, now := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error {
		attempt++
		if attempt == 1 {
			return errors.New("boom")
		}
		return nil
	})

	maxRetries := 3
	_, job, err := rt.CreateHire(ctx, CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.OnceSchedule(*now),
		MaxRetries:    &maxRetries,
	})
	require.NoError(t, err)

	require.NoError(t, rt.Tick(ctx, TickOptions{WorkerID: "w1"}))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "boom", *got.LastError)
	assert.GreaterOrEqual(t, got.NextRunAt, *now+800)
	assert.LessOrEqual(t, got.NextRunAt, *now+1200)

	*now = got.NextRunAt
	require.NoError(t, rt.Tick(ctx, TickOptions{WorkerID: "w1"}))

	final, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, final.Status)
	assert.Equal(t, 0, final.Attempts)
	assert.Nil(t, final.LastError)
}

// Scenario 4: Exhausted retries.
func TestExhaustedRetries(t *testing.T) {
	ctx := context.Background()
	rt, st, now := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error {
		return errors.New("boom")
	})

	maxRetries := 0
	_, job, err := rt.CreateHire(ctx, CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.OnceSchedule(*now),
		MaxRetries:    &maxRetries,
	})
	require.NoError(t, err)

	require.NoError(t, rt.Tick(ctx, TickOptions{WorkerID: "w1"}))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.LastError)
}

// Scenario 5: Canceled hire during tick.
func TestCanceledHireDuringTick(t *testing.T) {
	ctx := context.Background()
	calls := 0
	rt, st, now := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error {
		calls++
		return nil
	})

	hire, job, err := rt.CreateHire(ctx, CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.OnceSchedule(*now),
	})
	require.NoError(t, err)

	result, err := rt.CancelHire(ctx, hire.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.NoError(t, rt.Tick(ctx, TickOptions{WorkerID: "w1"}))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "hire canceled", *got.LastError)
}

// Scenario 6: Expired lease recovery.
func TestExpiredLeaseRecovery(t *testing.T) {
	ctx := context.Background()
	rt, st, now := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error { return nil })

	hire := domain.Hire{ID: "h1", Status: domain.HireStatusActive, Agent: domain.AgentRef{ManifestURL: "x"}}
	require.NoError(t, st.PutHire(ctx, hire))

	job := domain.Job{
		ID: "j1", HireID: "h1", EntrypointKey: "run",
		Status: domain.JobStatusLeased, Attempts: 2,
		Lease: &domain.Lease{WorkerID: "stale-worker", ExpiresAt: *now - 1000},
	}
	require.NoError(t, st.PutJob(ctx, job))

	count, err := rt.RecoverExpiredLeases(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := st.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Nil(t, got.Lease)
	assert.Equal(t, *now, got.NextRunAt)
	assert.Equal(t, 2, got.Attempts)

	second, err := rt.RecoverExpiredLeases(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}

func TestClaimJobPreventsDoubleExecution(t *testing.T) {
	ctx := context.Background()
	_, st, _ := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error { return nil })

	require.NoError(t, st.PutHire(ctx, domain.Hire{ID: "h1", Status: domain.HireStatusActive}))
	require.NoError(t, st.PutJob(ctx, domain.Job{
		ID: "j1", HireID: "h1", Status: domain.JobStatusPending, NextRunAt: 1_000_000,
	}))

	ok1, err := st.ClaimJob(ctx, "j1", "w1", 30_000, 1_000_000)
	require.NoError(t, err)
	ok2, err := st.ClaimJob(ctx, "j1", "w2", 30_000, 1_000_000)
	require.NoError(t, err)

	assert.True(t, ok1)
	assert.False(t, ok2)
}

func TestPauseResumeCancelHireTransitions(t *testing.T) {
	ctx := context.Background()
	rt, _, _ := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error { return nil })

	hire, _, err := rt.CreateHire(ctx, CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.IntervalSchedule(1000),
	})
	require.NoError(t, err)

	res, err := rt.PauseHire(ctx, hire.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = rt.PauseHire(ctx, hire.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Hire "+hire.ID+" is already paused", res.Error)

	res, err = rt.ResumeHire(ctx, hire.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = rt.CancelHire(ctx, hire.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = rt.CancelHire(ctx, hire.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = rt.PauseHire(ctx, hire.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Hire "+hire.ID+" is canceled", res.Error)
}

func TestPauseResumeJobTransitions(t *testing.T) {
	ctx := context.Background()
	rt, st, now := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error { return nil })

	_, job, err := rt.CreateHire(ctx, CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.IntervalSchedule(1000),
	})
	require.NoError(t, err)

	// Simulate the job being out on lease to a worker.
	leased := job
	leased.Status = domain.JobStatusLeased
	leased.Lease = &domain.Lease{WorkerID: "w1", ExpiresAt: *now + 30_000}
	require.NoError(t, st.PutJob(ctx, leased))

	res, err := rt.PauseJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	paused, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPaused, paused.Status)
	assert.Nil(t, paused.Lease, "pausing a leased job must clear its lease")

	res, err = rt.PauseJob(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Job "+job.ID+" is already paused", res.Error)

	res, err = rt.ResumeJob(ctx, job.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)

	resumed, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, resumed.Status)
	assert.Equal(t, *now, resumed.NextRunAt)

	res, err = rt.ResumeJob(ctx, job.ID, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Job "+job.ID+" is already active", res.Error)

	override := *now + 5_000
	completed := resumed
	completed.Status = domain.JobStatusCompleted
	require.NoError(t, st.PutJob(ctx, completed))

	res, err = rt.PauseJob(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Job "+job.ID+" is completed and cannot be paused", res.Error)

	res, err = rt.ResumeJob(ctx, job.ID, &override)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Job "+job.ID+" is completed and cannot be resumed", res.Error)

	failed := completed
	failed.Status = domain.JobStatusFailed
	require.NoError(t, st.PutJob(ctx, failed))

	res, err = rt.PauseJob(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Job "+job.ID+" is failed and cannot be paused", res.Error)

	res, err = rt.ResumeJob(ctx, job.ID, nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Job "+job.ID+" is failed and cannot be resumed", res.Error)
}

func TestResumeJobWithExplicitNextRunAt(t *testing.T) {
	ctx := context.Background()
	rt, st, now := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error { return nil })

	_, job, err := rt.CreateHire(ctx, CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.IntervalSchedule(1000),
	})
	require.NoError(t, err)

	res, err := rt.PauseJob(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	override := *now + 60_000
	res, err = rt.ResumeJob(ctx, job.ID, &override)
	require.NoError(t, err)
	assert.True(t, res.Success)

	resumed, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, resumed.Status)
	assert.Equal(t, override, resumed.NextRunAt)
}

func TestCronScheduleRejected(t *testing.T) {
	ctx := context.Background()
	rt, _, _ := newTestRuntime(t, 1_000_000, func(context.Context, InvocationArgs) error { return nil })

	_, _, err := rt.CreateHire(ctx, CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.Schedule{Kind: domain.ScheduleKindCron},
	})
	require.Error(t, err)
	assert.EqualError(t, err, "Cron schedules are not supported yet")
}
