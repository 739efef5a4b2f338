// Package config defines service configuration and its defaults.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend picks the ratings store: memory, file, sqlite or postgres.
	StoreBackend string `koanf:"store_backend"`

	StoreFilePath string `koanf:"store_file_path"`
	SQLitePath    string `koanf:"sqlite_path"`
	PostgresDSN   string `koanf:"postgres_dsn"`

	// StoreTimeoutMS bounds every store round trip.
	StoreTimeoutMS int `koanf:"store_timeout_ms"`

	// KFactor is the Elo K used by every update of this process.
	KFactor float64 `koanf:"k_factor"`

	// InitialRating is assigned to seeded items.
	InitialRating float64 `koanf:"initial_rating"`

	// VoteRetries is how many times a conflicting vote is recomputed.
	VoteRetries int `koanf:"vote_retries"`

	// RecentPairWindow enables repeat avoidance for the last N pairs; 0 disables it.
	RecentPairWindow int `koanf:"recent_pair_window"`

	SessionTTLSec int `koanf:"session_ttl_sec"`
	MaxSessions   int `koanf:"max_sessions"`

	// HistorySize bounds the in-memory vote history.
	HistorySize      int `koanf:"history_size"`
	HistoryQueueSize int `koanf:"history_queue_size"`
	HistoryWorkers   int `koanf:"history_workers"`

	// ExportSchedule is a cron expression; empty disables the exporter.
	ExportSchedule string `koanf:"export_schedule"`
	ExportPath     string `koanf:"export_path"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// SeedOnStart inserts the built-in roster when the service starts.
	SeedOnStart bool `koanf:"seed_on_start"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		StoreBackend:        BackendMemory,
		StoreFilePath:       "elovote.json",
		SQLitePath:          "elovote.db",
		StoreTimeoutMS:      2000,
		KFactor:             30,
		InitialRating:       1500,
		VoteRetries:         1,
		SessionTTLSec:       1800,
		MaxSessions:         10_000,
		HistorySize:         1000,
		HistoryQueueSize:    4096,
		HistoryWorkers:      max(2, runtime.NumCPU()/2),
		ExportPath:          "leaderboard.json",
		MaxLeaderboardLimit: 100,
		SeedOnStart:         true,
	}
}

// StoreTimeout returns StoreTimeoutMS as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// SessionTTL returns SessionTTLSec as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.KFactor <= 0:
		return fmt.Errorf("%w: k_factor must be positive, got %v", ErrInvalidConfig, c.KFactor)
	case c.VoteRetries < 0:
		return fmt.Errorf("%w: vote_retries must not be negative", ErrInvalidConfig)
	case c.RecentPairWindow < 0:
		return fmt.Errorf("%w: recent_pair_window must not be negative", ErrInvalidConfig)
	case c.StoreTimeoutMS <= 0:
		return fmt.Errorf("%w: store_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxSessions <= 0:
		return fmt.Errorf("%w: max_sessions must be positive", ErrInvalidConfig)
	case c.HistorySize <= 0 || c.HistoryQueueSize <= 0 || c.HistoryWorkers <= 0:
		return fmt.Errorf("%w: history sizes and worker count must be positive", ErrInvalidConfig)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendFile:
		if c.StoreFilePath == "" {
			return fmt.Errorf("%w: store_file_path is required for the file backend", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite backend", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}

	if c.ExportSchedule != "" && c.ExportPath == "" {
		return fmt.Errorf("%w: export_path is required when export_schedule is set", ErrInvalidConfig)
	}
	return nil
}
