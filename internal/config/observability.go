package config

// ObservabilityConfig holds observability configuration shared by both
// binaries (SPEC_FULL §10.1), wired to pkg/observability's provider setup.
type ObservabilityConfig struct {
	OTelEnabled bool   `env:"AGENTSCHED_OTEL_ENABLED"`
	ServiceName string `env:"OTEL_SERVICE_NAME"`
}
