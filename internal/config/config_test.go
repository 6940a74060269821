// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func testFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	return flags
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatehouse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	flags := testFlags(t)
	require.NoError(t, flags.Set("token_secret", "test-secret"))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultMetricsAddr, cfg.MetricsAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendMemory, cfg.IdentityBackend)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, 10*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, 4, cfg.HasherWorkers)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: "0.0.0.0:8080"
log_format: text
session_backend: redis
redis_addr: "localhost:6379"
redis_db: 3
token_secret: file-secret
token_ttl: 5m
`)

	cfg, err := Load(path, testFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, BackendRedis, cfg.SessionBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "file-secret", cfg.TokenSecret)
	assert.Equal(t, 5*time.Minute, cfg.TokenTTL)

	// Keys the file does not set keep flag defaults.
	assert.Equal(t, BackendMemory, cfg.IdentityBackend)
	assert.Equal(t, 4, cfg.HasherWorkers)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, `
listen_addr: "0.0.0.0:8080"
token_secret: file-secret
`)

	flags := testFlags(t)
	require.NoError(t, flags.Set("listen_addr", "127.0.0.1:4000"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:4000", cfg.ListenAddr)
	assert.Equal(t, "file-secret", cfg.TokenSecret)
}

func TestLoad_SecretFromEnvironment(t *testing.T) {
	t.Setenv("GATEHOUSE_TOKEN_SECRET", "env-secret")

	cfg, err := Load("", testFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.TokenSecret)
}

func TestLoad_DatabaseURLFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/gatehouse")

	flags := testFlags(t)
	require.NoError(t, flags.Set("token_secret", "test-secret"))
	require.NoError(t, flags.Set("identity_backend", "postgres"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/gatehouse", cfg.DatabaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), testFlags(t))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_FILE_FAILED")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			ListenAddr:      DefaultListenAddr,
			LogFormat:       "json",
			IdentityBackend: BackendMemory,
			SessionBackend:  BackendMemory,
			TokenSecret:     "test-secret",
			TokenTTL:        time.Minute,
			ChallengeTTL:    time.Minute,
			HasherWorkers:   2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing listen addr",
			mutate:  func(c *Config) { c.ListenAddr = "" },
			wantErr: "listen_addr",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "log_format",
		},
		{
			name:    "unknown identity backend",
			mutate:  func(c *Config) { c.IdentityBackend = "sqlite" },
			wantErr: "identity_backend",
		},
		{
			name:    "postgres backend without url",
			mutate:  func(c *Config) { c.IdentityBackend = BackendPostgres },
			wantErr: "database_url",
		},
		{
			name:    "unknown session backend",
			mutate:  func(c *Config) { c.SessionBackend = "memcached" },
			wantErr: "session_backend",
		},
		{
			name:    "redis backend without addr",
			mutate:  func(c *Config) { c.SessionBackend = BackendRedis },
			wantErr: "redis_addr",
		},
		{
			name:    "missing token secret",
			mutate:  func(c *Config) { c.TokenSecret = "" },
			wantErr: "token_secret",
		},
		{
			name:    "non-positive token ttl",
			mutate:  func(c *Config) { c.TokenTTL = 0 },
			wantErr: "token_ttl",
		},
		{
			name:    "non-positive challenge ttl",
			mutate:  func(c *Config) { c.ChallengeTTL = -time.Second },
			wantErr: "challenge_ttl",
		},
		{
			name:    "non-positive hasher workers",
			mutate:  func(c *Config) { c.HasherWorkers = 0 },
			wantErr: "hasher_workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}
}
