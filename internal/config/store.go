package config

import "fmt"

// StoreConfig selects and configures the scheduler's Store backend
// (spec §4.1; SPEC_FULL §10.3/§11). Driver picks the implementation;
// DSN/Path are interpreted according to it.
type StoreConfig struct {
	// Driver is one of "memory", "sqlite", "postgres". When unset it is
	// treated as "memory" by DriverOrDefault; neither env.Load nor the
	// Load*Config functions fill it in.
	Driver string `env:"AGENTSCHED_STORE_DRIVER"`
	// DSN is the Postgres connection string when Driver == "postgres".
	DSN string `env:"AGENTSCHED_STORE_DSN"`
	// Path is the SQLite database file path when Driver == "sqlite".
	// Use ":memory:" for an ephemeral, process-local database.
	Path string `env:"AGENTSCHED_STORE_PATH"`
}

// Validate checks that the fields required by the selected driver are
// present. An empty Driver is treated as "memory", since env.Load applies no
// tag-level defaults (it validates nested structs immediately after parsing
// them, before a caller could otherwise fill in zero values).
func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case "", "memory":
		return nil
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("AGENTSCHED_STORE_PATH is required when AGENTSCHED_STORE_DRIVER is 'sqlite'")
		}
		return nil
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("AGENTSCHED_STORE_DSN is required when AGENTSCHED_STORE_DRIVER is 'postgres'")
		}
		return nil
	default:
		return fmt.Errorf("unknown AGENTSCHED_STORE_DRIVER: %s", c.Driver)
	}
}

// DriverOrDefault returns the configured driver, or "memory" if unset.
func (c *StoreConfig) DriverOrDefault() string {
	if c.Driver == "" {
		return "memory"
	}
	return c.Driver
}
