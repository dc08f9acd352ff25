// Package invoker provides an HTTP-backed implementation of
// scheduler.Invoker, POSTing invocation requests to an entrypoint's URL.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rezkam/mono/internal/scheduler"
)

// requestBody is the wire shape POSTed to an entrypoint (SPEC_FULL §13).
type requestBody struct {
	EntrypointKey string `json:"entrypointKey"`
	Input         any    `json:"input,omitempty"`
	WalletRef     any    `json:"walletRef,omitempty"`
}

// HTTPInvoker implements scheduler.Invoker by POSTing to the entrypoint URL
// named in the job's manifest descriptor. Network errors and 5xx responses
// are retried with an independent round-trip backoff before being surfaced
// to the scheduler wrapped in scheduler.Transient, so a flaky entrypoint
// doesn't immediately burn a job's own retry budget.
type HTTPInvoker struct {
	client     *http.Client
	maxRetries uint
}

// NewHTTPInvoker builds an HTTPInvoker. maxRetries bounds the transport-level
// retry loop; it is independent of the job-level retry count in spec §4.3.5.
func NewHTTPInvoker(timeout time.Duration, maxRetries uint) *HTTPInvoker {
	return &HTTPInvoker{
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		maxRetries: maxRetries,
	}
}

// Invoke implements scheduler.Invoker.
func (h *HTTPInvoker) Invoke(ctx context.Context, args scheduler.InvocationArgs) error {
	desc, ok := args.Manifest.Entrypoints[args.EntrypointKey]
	if !ok || desc.URL == "" {
		return fmt.Errorf("entrypoint %s has no invocation url", args.EntrypointKey)
	}

	body, err := json.Marshal(requestBody{
		EntrypointKey: args.EntrypointKey,
		Input:         args.Input,
		WalletRef:     args.WalletHandle,
	})
	if err != nil {
		return fmt.Errorf("marshal invocation body: %w", err)
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, h.doOnce(ctx, desc.URL, args.IdempotencyKey, body)
	}, backoff.WithMaxTries(h.maxRetries+1))
	if err == nil {
		return nil
	}
	return scheduler.Transient(err)
}

func (h *HTTPInvoker) doOnce(ctx context.Context, url string, idempotencyKey *string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build invocation request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != nil {
		req.Header.Set("Idempotency-Key", *idempotencyKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("entrypoint returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("entrypoint returned status %d", resp.StatusCode))
	default:
		return nil
	}
}
