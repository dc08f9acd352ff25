// Package manifest provides an HTTP-backed implementation of
// scheduler.ManifestFetcher, fetching an agent's well-known capability
// descriptor (spec §4.2).
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rezkam/mono/internal/domain"
)

const wellKnownPath = "/.well-known/agent-manifest.json"

// Fetcher retrieves an AgentManifest over HTTP from <manifestURL><wellKnownPath>.
type Fetcher struct {
	client *http.Client
}

// NewFetcher builds a Fetcher with an otelhttp-instrumented client.
// A zero timeout means no per-request deadline beyond ctx.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// Fetch implements scheduler.ManifestFetcher.
func (f *Fetcher) Fetch(ctx context.Context, manifestURL string) (domain.AgentManifest, error) {
	target, err := joinWellKnown(manifestURL)
	if err != nil {
		return domain.AgentManifest{}, fmt.Errorf("manifest url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.AgentManifest{}, fmt.Errorf("build manifest request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.AgentManifest{}, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.AgentManifest{}, fmt.Errorf("fetch manifest: unexpected status %d", resp.StatusCode)
	}

	var m domain.AgentManifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return domain.AgentManifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

func joinWellKnown(manifestURL string) (string, error) {
	u, err := url.Parse(manifestURL)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + wellKnownPath
	return u.String(), nil
}
