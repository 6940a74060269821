// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads and validates service configuration. Values are
// layered: flag defaults, then an optional YAML file, then explicitly set
// flags, then environment fallbacks for secrets.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Backend names accepted for the identity and session stores.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Default values for serve flags.
const (
	DefaultListenAddr  = "127.0.0.1:3000"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultLogFormat   = "json"
	DefaultLogLevel    = "info"
)

// Config holds the full service configuration.
type Config struct {
	ListenAddr  string `koanf:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr"` // empty disables the observability server
	LogFormat   string `koanf:"log_format"`
	LogLevel    string `koanf:"log_level"`

	// IdentityBackend selects the identity store: postgres or memory.
	IdentityBackend string `koanf:"identity_backend"`
	// SessionBackend selects the revocation and challenge stores: redis or
	// memory.
	SessionBackend string `koanf:"session_backend"`

	DatabaseURL string `koanf:"database_url"`
	RedisAddr   string `koanf:"redis_addr"`
	RedisDB     int    `koanf:"redis_db"`

	TokenSecret   string        `koanf:"token_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	ChallengeTTL  time.Duration `koanf:"challenge_ttl"`
	HasherWorkers int           `koanf:"hasher_workers"`
}

// RegisterFlags declares the serve flags with their defaults. Flag names
// double as config file keys with dashes mapped to underscores.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("listen_addr", DefaultListenAddr, "HTTP API listen address")
	flags.String("metrics_addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("log_format", DefaultLogFormat, "log format (json or text)")
	flags.String("log_level", DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("identity_backend", BackendMemory, "identity store backend (postgres or memory)")
	flags.String("session_backend", BackendMemory, "session store backend (redis or memory)")
	flags.String("database_url", "", "PostgreSQL URL (default: DATABASE_URL env)")
	flags.String("redis_addr", "", "Redis address (host:port)")
	flags.Int("redis_db", 0, "Redis database number")
	flags.String("token_secret", "", "session token signing secret (default: GATEHOUSE_TOKEN_SECRET env)")
	flags.Duration("token_ttl", 10*time.Minute, "session token lifetime")
	flags.Duration("challenge_ttl", 10*time.Minute, "pending second-factor challenge lifetime")
	flags.Int("hasher_workers", 4, "max concurrent credential hashing operations")
}

// Load builds a Config from the optional YAML file at path and the given
// flag set, then validates it. An empty path skips the file layer.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	// Explicitly set flags override the file; untouched flags only fill
	// keys the file left unset.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	// Secrets come from the environment when not set elsewhere, so they
	// stay out of config files and process listings.
	if cfg.TokenSecret == "" {
		cfg.TokenSecret = os.Getenv("GATEHOUSE_TOKEN_SECRET")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is complete and consistent.
func (cfg *Config) Validate() error {
	if cfg.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen_addr is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log_format must be 'json' or 'text', got %q", cfg.LogFormat)
	}

	switch cfg.IdentityBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").
				Errorf("identity_backend 'postgres' requires database_url or DATABASE_URL")
		}
	default:
		return oops.Code("CONFIG_INVALID").
			Errorf("identity_backend must be 'postgres' or 'memory', got %q", cfg.IdentityBackend)
	}

	switch cfg.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return oops.Code("CONFIG_INVALID").
				Errorf("session_backend 'redis' requires redis_addr")
		}
	default:
		return oops.Code("CONFIG_INVALID").
			Errorf("session_backend must be 'redis' or 'memory', got %q", cfg.SessionBackend)
	}

	if cfg.TokenSecret == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("token_secret or GATEHOUSE_TOKEN_SECRET is required")
	}
	if cfg.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token_ttl must be positive")
	}
	if cfg.ChallengeTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("challenge_ttl must be positive")
	}
	if cfg.HasherWorkers <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("hasher_workers must be positive")
	}
	return nil
}
