// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) builds a Config holding the defaults.
// - Load(ctx) layers a YAML file and RADAR_ env vars on top and validates.
// - Validation failures wrap ErrInvalidConfig; provider failures wrap ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"time"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the storage backend: memory or postgres.
	StoreDriver string `koanf:"store_driver"`

	// PostgresDSN is required when StoreDriver is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`

	// OperationTimeoutMS bounds every service operation.
	OperationTimeoutMS int `koanf:"operation_timeout_ms"`

	// MaxUpdateRetries bounds event compare-and-set retries.
	MaxUpdateRetries int `koanf:"max_update_retries"`

	// SeedCatalog installs the built-in technologies when the catalog is empty.
	SeedCatalog bool `koanf:"seed_catalog"`

	// Breaker* tune the circuit breaker wrapped around the store.
	BreakerMaxRequests  int     `koanf:"breaker_max_requests"`
	BreakerIntervalMS   int     `koanf:"breaker_interval_ms"`
	BreakerTimeoutMS    int     `koanf:"breaker_timeout_ms"`
	BreakerFailureRatio float64 `koanf:"breaker_failure_ratio"`
	BreakerMinRequests  int     `koanf:"breaker_min_requests"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StoreDriver:         StoreMemory,
		OperationTimeoutMS:  5_000,
		MaxUpdateRetries:    5,
		SeedCatalog:         true,
		BreakerMaxRequests:  1,
		BreakerIntervalMS:   60_000,
		BreakerTimeoutMS:    30_000,
		BreakerFailureRatio: 0.6,
		BreakerMinRequests:  5,
	}
}

// OperationTimeout returns the per-operation deadline.
func (c *Config) OperationTimeout() time.Duration {
	return time.Duration(c.OperationTimeoutMS) * time.Millisecond
}

// BreakerInterval returns the window after which breaker counts reset.
func (c *Config) BreakerInterval() time.Duration {
	return time.Duration(c.BreakerIntervalMS) * time.Millisecond
}

// BreakerTimeout returns how long an open breaker waits before probing.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutMS) * time.Millisecond
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StorePostgres:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StorePostgres && c.PostgresDSN == "":
		return fmt.Errorf("%w: postgres_dsn is required for the postgres driver", ErrInvalidConfig)
	case c.OperationTimeoutMS <= 0:
		return fmt.Errorf("%w: operation_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxUpdateRetries < 1:
		return fmt.Errorf("%w: max_update_retries must be at least 1", ErrInvalidConfig)
	case c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1:
		return fmt.Errorf("%w: breaker_failure_ratio must be in (0, 1]", ErrInvalidConfig)
	case c.BreakerMaxRequests < 1 || c.BreakerMinRequests < 1:
		return fmt.Errorf("%w: breaker request counts must be positive", ErrInvalidConfig)
	case c.BreakerIntervalMS < 0 || c.BreakerTimeoutMS <= 0:
		return fmt.Errorf("%w: breaker durations out of range", ErrInvalidConfig)
	}
	return nil
}
