package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/scheduler"
	"github.com/rezkam/mono/internal/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	rt, err := scheduler.New(scheduler.Config{
		Store:   memory.New(),
		Invoker: scheduler.InvokerFunc(func(context.Context, scheduler.InvocationArgs) error { return nil }),
		ManifestFetcher: scheduler.ManifestFetcherFunc(func(context.Context, string) (domain.AgentManifest, error) {
			return domain.AgentManifest{Entrypoints: map[string]domain.EntrypointDescriptor{"run": {}}}, nil
		}),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(rt, 0))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateHireAndControlLifecycle(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"manifestUrl":   "https://agent.example",
		"entrypointKey": "run",
		"schedule":      map[string]any{"kind": "interval", "everyMs": 60000},
	})
	resp, err := http.Post(srv.URL+"/hires/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Hire domain.Hire `json:"hire"`
		Job  domain.Job  `json:"job"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.Hire.ID)
	assert.Equal(t, domain.HireStatusActive, created.Hire.Status)

	pauseResp, err := http.Post(srv.URL+"/hires/"+created.Hire.ID+"/pause", "application/json", nil)
	require.NoError(t, err)
	defer pauseResp.Body.Close()

	var result scheduler.ControlResult
	require.NoError(t, json.NewDecoder(pauseResp.Body).Decode(&result))
	assert.True(t, result.Success)
}

func TestCreateHireUnknownEntrypointReturnsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"manifestUrl":   "https://agent.example",
		"entrypointKey": "missing",
		"schedule":      map[string]any{"kind": "once", "at": 0},
	})
	resp, err := http.Post(srv.URL+"/hires/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCronScheduleRejectedOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"manifestUrl":   "https://agent.example",
		"entrypointKey": "run",
		"schedule":      map[string]any{"kind": "cron"},
	})
	resp, err := http.Post(srv.URL+"/hires/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJobPauseResumeLifecycle(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"manifestUrl":   "https://agent.example",
		"entrypointKey": "run",
		"schedule":      map[string]any{"kind": "interval", "everyMs": 60000},
	})
	resp, err := http.Post(srv.URL+"/hires/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Hire domain.Hire `json:"hire"`
		Job  domain.Job  `json:"job"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	pauseResp, err := http.Post(srv.URL+"/jobs/"+created.Job.ID+"/pause", "application/json", nil)
	require.NoError(t, err)
	defer pauseResp.Body.Close()

	var pauseResult scheduler.ControlResult
	require.NoError(t, json.NewDecoder(pauseResp.Body).Decode(&pauseResult))
	assert.True(t, pauseResult.Success)

	secondPause, err := http.Post(srv.URL+"/jobs/"+created.Job.ID+"/pause", "application/json", nil)
	require.NoError(t, err)
	defer secondPause.Body.Close()

	var secondPauseResult scheduler.ControlResult
	require.NoError(t, json.NewDecoder(secondPause.Body).Decode(&secondPauseResult))
	assert.False(t, secondPauseResult.Success)
	assert.Equal(t, "Job "+created.Job.ID+" is already paused", secondPauseResult.Error)

	resumeBody, _ := json.Marshal(map[string]any{"nextRunAt": 1_234_567})
	resumeResp, err := http.Post(srv.URL+"/jobs/"+created.Job.ID+"/resume", "application/json", bytes.NewReader(resumeBody))
	require.NoError(t, err)
	defer resumeResp.Body.Close()

	var resumeResult scheduler.ControlResult
	require.NoError(t, json.NewDecoder(resumeResp.Body).Decode(&resumeResult))
	assert.True(t, resumeResult.Success)
}

func TestJobPauseWithInvalidIDReturnsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/jobs/not-a-uuid/pause", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
