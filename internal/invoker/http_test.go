package invoker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/scheduler"
)

func manifestWithURL(url string) domain.AgentManifest {
	return domain.AgentManifest{
		Entrypoints: map[string]domain.EntrypointDescriptor{
			"run": {URL: url},
		},
	}
}

func TestInvokeSuccess(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	inv := NewHTTPInvoker(2*time.Second, 2)
	key := "idem-1"
	err := inv.Invoke(context.Background(), scheduler.InvocationArgs{
		Manifest:       manifestWithURL(srv.URL),
		EntrypointKey:  "run",
		IdempotencyKey: &key,
	})
	require.NoError(t, err)
	assert.Equal(t, "idem-1", gotHeader)
}

func TestInvoke4xxIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	inv := NewHTTPInvoker(2*time.Second, 3)
	err := inv.Invoke(context.Background(), scheduler.InvocationArgs{
		Manifest:      manifestWithURL(srv.URL),
		EntrypointKey: "run",
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvoke5xxRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	inv := NewHTTPInvoker(2*time.Second, 5)
	err := inv.Invoke(context.Background(), scheduler.InvocationArgs{
		Manifest:      manifestWithURL(srv.URL),
		EntrypointKey: "run",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestInvoke5xxExhaustedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	inv := NewHTTPInvoker(2*time.Second, 1)
	err := inv.Invoke(context.Background(), scheduler.InvocationArgs{
		Manifest:      manifestWithURL(srv.URL),
		EntrypointKey: "run",
	})
	require.Error(t, err)
	assert.True(t, scheduler.IsTransient(err))
}

func TestInvokeMissingEntrypointURL(t *testing.T) {
	inv := NewHTTPInvoker(time.Second, 1)
	err := inv.Invoke(context.Background(), scheduler.InvocationArgs{
		Manifest:      domain.AgentManifest{Entrypoints: map[string]domain.EntrypointDescriptor{}},
		EntrypointKey: "run",
	})
	assert.Error(t, err)
}
