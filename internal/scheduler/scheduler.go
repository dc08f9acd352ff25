// Package scheduler implements the runtime described by spec §4.3: a
// stateless facade over a Store that creates and mutates hires and jobs,
// sweeps due work on tick, and recovers expired leases. All state lives in
// the store; the Runtime holds only its configuration and collaborators.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/mono/internal/domain"
	"github.com/rezkam/mono/internal/store"
)

const (
	defaultLeaseMs       = 30_000
	defaultMaxRetries    = 3
	defaultMaxDueBatch   = 25
	defaultManifestTTLMs = 5 * 60_000
	defaultConcurrency   = 5
)

// ErrNoInvoker is returned by New when cfg.Invoker is nil. Config takes
// the invoker only through its Invoker field; there is no adapter form
// that supplies one.
var ErrNoInvoker = errors.New("scheduler: an invoker must be configured")

// Config holds the Runtime's configuration. Every field has a zero-value
// default applied by New except Store and Invoker, which are required.
type Config struct {
	Store           store.Store
	Invoker         Invoker
	ManifestFetcher ManifestFetcher
	WalletResolver  WalletResolver

	// Clock returns the current instant as epoch-ms. Defaults to the
	// wall clock; tests should inject a fixed/advancing fake.
	Clock func() int64

	LeaseMs            int
	DefaultMaxRetries  int
	MaxDueBatch        int
	ManifestTTLMs      int64
	DefaultConcurrency int
}

// Runtime is the stateless scheduler facade (spec §4.3).
type Runtime struct {
	store           store.Store
	invoker         Invoker
	manifestFetcher ManifestFetcher
	walletResolver  WalletResolver
	clock           func() int64

	leaseMs            int
	defaultMaxRetries  int
	maxDueBatch        int
	manifestTTLMs      int64
	defaultConcurrency int
}

// New constructs a Runtime, applying defaults to any zero-valued
// configuration field. Returns ErrNoInvoker if cfg.Invoker is nil.
func New(cfg Config) (*Runtime, error) {
	if cfg.Invoker == nil {
		return nil, ErrNoInvoker
	}
	if cfg.Store == nil {
		return nil, errors.New("scheduler: a store must be configured")
	}

	r := &Runtime{
		store:              cfg.Store,
		invoker:            cfg.Invoker,
		manifestFetcher:    cfg.ManifestFetcher,
		walletResolver:     cfg.WalletResolver,
		clock:              cfg.Clock,
		leaseMs:            cfg.LeaseMs,
		defaultMaxRetries:  cfg.DefaultMaxRetries,
		maxDueBatch:        cfg.MaxDueBatch,
		manifestTTLMs:      cfg.ManifestTTLMs,
		defaultConcurrency: cfg.DefaultConcurrency,
	}

	if r.clock == nil {
		r.clock = func() int64 { return time.Now().UnixMilli() }
	}
	if r.leaseMs <= 0 {
		r.leaseMs = defaultLeaseMs
	}
	if r.defaultMaxRetries <= 0 {
		r.defaultMaxRetries = defaultMaxRetries
	}
	if r.maxDueBatch <= 0 {
		r.maxDueBatch = defaultMaxDueBatch
	}
	if r.manifestTTLMs <= 0 {
		r.manifestTTLMs = defaultManifestTTLMs
	}
	if r.defaultConcurrency <= 0 {
		r.defaultConcurrency = defaultConcurrency
	}
	if r.manifestFetcher == nil {
		r.manifestFetcher = ManifestFetcherFunc(func(context.Context, string) (domain.AgentManifest, error) {
			return domain.AgentManifest{}, fmt.Errorf("scheduler: no manifest fetcher configured")
		})
	}

	return r, nil
}

func newID() string {
	return uuid.NewString()
}
