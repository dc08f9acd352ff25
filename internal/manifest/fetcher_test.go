package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wellKnownPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"demo","entrypoints":{"run":{"description":"runs it","url":"https://agent.example/run"}}}`))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	m, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Name)
	require.True(t, m.HasEntrypoint("run"))
	assert.Equal(t, "https://agent.example/run", m.Entrypoints["run"].URL)
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestJoinWellKnownTrimsTrailingSlash(t *testing.T) {
	got, err := joinWellKnown("https://agent.example/")
	require.NoError(t, err)
	assert.Equal(t, "https://agent.example/.well-known/agent-manifest.json", got)
}
