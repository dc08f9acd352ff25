package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rezkam/mono/internal/env"
)

// WorkerConfig holds all configuration for the worker binary (SPEC_FULL
// §10.3): store selection, the tick/recovery cadence, and per-tick fan-out.
type WorkerConfig struct {
	Store StoreConfig

	WorkerID         string        `env:"AGENTSCHED_WORKER_ID"`
	TickInterval     time.Duration `env:"AGENTSCHED_TICK_INTERVAL"`
	RecoveryInterval time.Duration `env:"AGENTSCHED_RECOVERY_INTERVAL"`
	Concurrency      int           `env:"AGENTSCHED_CONCURRENCY"`
	LeaseMs          int           `env:"AGENTSCHED_LEASE_MS"`

	Observability ObservabilityConfig
}

// LoadWorkerConfig loads and validates worker configuration from environment,
// then fills in defaults env.Load left zero-valued (env.Load applies none
// itself; see internal/env's doc comment).
func LoadWorkerConfig() (*WorkerConfig, error) {
	cfg := &WorkerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load worker config: %w", err)
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 1 * time.Second
	}
	if cfg.RecoveryInterval <= 0 {
		cfg.RecoveryInterval = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.LeaseMs <= 0 {
		cfg.LeaseMs = 30_000
	}
	if cfg.WorkerID == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			cfg.WorkerID = host
		} else {
			cfg.WorkerID = "worker"
		}
	}

	return cfg, nil
}
