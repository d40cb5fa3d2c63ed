// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"runtime"
	"time"
)

// Store backends.
const (
	StoreMemory    = "memory"
	StorePostgres  = "postgres"
	StoreRedis     = "redis"
	StoreFirestore = "firestore"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the document store backend.
	Store string `koanf:"store"`

	DatabaseURL      string `koanf:"database_url"`
	RedisURL         string `koanf:"redis_url"`
	FirestoreProject string `koanf:"firestore_project"`

	// TxMaxAttempts bounds how often a conflicting transaction is retried.
	TxMaxAttempts int `koanf:"tx_max_attempts"`

	// QueueSize bounds the in-memory notification queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of match workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the delivery-id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxRedeliveries caps re-enqueues after transport errors.
	MaxRedeliveries     int `koanf:"max_redeliveries"`
	RedeliveryBackoffMS int `koanf:"redelivery_backoff_ms"`

	// ExtendedStats enables streak, recent games and per-match update maps.
	ExtendedStats bool `koanf:"extended_stats"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Store:               StoreMemory,
		TxMaxAttempts:       5,
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          100_000,
		MaxRedeliveries:     5,
		RedeliveryBackoffMS: 200,
	}
}

// RedeliveryBackoff returns the base redelivery delay.
func (c *Config) RedeliveryBackoff() time.Duration {
	return time.Duration(c.RedeliveryBackoffMS) * time.Millisecond
}
