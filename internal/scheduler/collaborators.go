package scheduler

import (
	"context"

	"github.com/rezkam/mono/internal/domain"
)

// ManifestFetcher retrieves and parses an agent's capability descriptor.
// Errors surface synchronously to callers of createHire/addJob, and as
// job failures (or retryable job errors) during tick-time refreshes.
type ManifestFetcher interface {
	Fetch(ctx context.Context, manifestURL string) (domain.AgentManifest, error)
}

// InvocationArgs is everything the invoker needs to perform one agent
// call. WalletRef and WalletHandle are nil unless the hire carries a
// wallet and a WalletResolver is configured.
type InvocationArgs struct {
	Manifest       domain.AgentManifest
	EntrypointKey  string
	Input          any
	JobID          string
	IdempotencyKey *string
	WalletRef      *domain.WalletRef
	WalletHandle   any
}

// Invoker performs one agent call. Implementations are expected to be
// idempotent with respect to IdempotencyKey when present (spec §5, §6).
type Invoker interface {
	Invoke(ctx context.Context, args InvocationArgs) error
}

// WalletResolver turns an opaque wallet reference into a materialized
// handle usable by the invoker. Optional: a runtime with none configured
// simply never populates WalletHandle.
type WalletResolver interface {
	Resolve(ctx context.Context, ref domain.WalletRef) (any, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, args InvocationArgs) error

func (f InvokerFunc) Invoke(ctx context.Context, args InvocationArgs) error { return f(ctx, args) }

// ManifestFetcherFunc adapts a plain function to the ManifestFetcher interface.
type ManifestFetcherFunc func(ctx context.Context, manifestURL string) (domain.AgentManifest, error)

func (f ManifestFetcherFunc) Fetch(ctx context.Context, manifestURL string) (domain.AgentManifest, error) {
	return f(ctx, manifestURL)
}

// WalletResolverFunc adapts a plain function to the WalletResolver interface.
type WalletResolverFunc func(ctx context.Context, ref domain.WalletRef) (any, error)

func (f WalletResolverFunc) Resolve(ctx context.Context, ref domain.WalletRef) (any, error) {
	return f(ctx, ref)
}
