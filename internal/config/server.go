package config

import (
	"fmt"
	"time"

	"github.com/rezkam/mono/internal/env"
)

// ServerConfig holds all configuration for the HTTP API server binary
// (SPEC_FULL §10.3).
type ServerConfig struct {
	Store           StoreConfig
	HTTP            HTTPConfig
	Observability   ObservabilityConfig
	ShutdownTimeout time.Duration `env:"AGENTSCHED_SHUTDOWN_TIMEOUT"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host              string        `env:"AGENTSCHED_HTTP_HOST"`
	Port              string        `env:"AGENTSCHED_HTTP_PORT"`
	ReadTimeout       time.Duration `env:"AGENTSCHED_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"AGENTSCHED_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"AGENTSCHED_HTTP_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"AGENTSCHED_HTTP_READ_HEADER_TIMEOUT"`
	MaxHeaderBytes    int           `env:"AGENTSCHED_HTTP_MAX_HEADER_BYTES"`
}

// PortOrDefault returns the configured port, or "8080" if unset.
func (c HTTPConfig) PortOrDefault() string {
	if c.Port == "" {
		return "8080"
	}
	return c.Port
}

// LoadServerConfig loads and validates server configuration from environment.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return cfg, nil
}
