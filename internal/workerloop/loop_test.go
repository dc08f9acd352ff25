package workerloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/scheduler"
	"github.com/rezkam/mono/internal/store/memory"
)

func TestLoopRunsDueJobUntilStopped(t *testing.T) {
	var calls int32
	st := memory.New()
	rt, err := scheduler.New(scheduler.Config{
		Store: st,
		Invoker: scheduler.InvokerFunc(func(context.Context, scheduler.InvocationArgs) error {
			atomic.AddInt32(&calls, 1)
			return nil
		}),
		ManifestFetcher: scheduler.ManifestFetcherFunc(func(context.Context, string) (domain.AgentManifest, error) {
			return domain.AgentManifest{Entrypoints: map[string]domain.EntrypointDescriptor{"run": {}}}, nil
		}),
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, _, err = rt.CreateHire(ctx, scheduler.CreateHireRequest{
		ManifestURL:   "https://agent.example",
		EntrypointKey: "run",
		Schedule:      domain.OnceSchedule(0),
	})
	require.NoError(t, err)

	loop := New(rt, "w1", WithTickInterval(10*time.Millisecond), WithRecoveryInterval(time.Hour))

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Start(runCtx) }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestLoopStopEndsStartWithoutError(t *testing.T) {
	st := memory.New()
	rt, err := scheduler.New(scheduler.Config{
		Store:           st,
		Invoker:         scheduler.InvokerFunc(func(context.Context, scheduler.InvocationArgs) error { return nil }),
		ManifestFetcher: scheduler.ManifestFetcherFunc(func(context.Context, string) (domain.AgentManifest, error) { return domain.AgentManifest{}, nil }),
	})
	require.NoError(t, err)

	loop := New(rt, "w1", WithTickInterval(time.Hour), WithRecoveryInterval(time.Hour))
	done := make(chan error, 1)
	go func() { done <- loop.Start(context.Background()) }()

	loop.Stop()
	err = <-done
	assert.NoError(t, err)
}
