// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	authredis "github.com/gatehouse/gatehouse/internal/auth/redis"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/control"
	"github.com/gatehouse/gatehouse/internal/httpapi"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/xdg"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication service",
		Long: `Start the authentication HTTP API along with the configured
identity and session store backends.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configFile
			if path == "" {
				path = defaultConfigFile()
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// defaultConfigFile returns the XDG config file path if one exists, or empty
// to run on flag and environment defaults alone.
func defaultConfigFile() string {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// runServe wires the configured backends and runs the service until a
// shutdown signal or a server failure.
func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("gatehouse", version, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
	logger := slog.Default()

	logger.Info("starting gatehouse",
		"listen_addr", cfg.ListenAddr,
		"identity_backend", cfg.IdentityBackend,
		"session_backend", cfg.SessionBackend,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hasher, err := auth.NewBoundedHasher(auth.NewArgon2Hasher(auth.DefaultArgon2Params()), cfg.HasherWorkers)
	if err != nil {
		return fmt.Errorf("failed to create hasher: %w", err)
	}

	identities, cleanupPG, err := buildIdentityStore(ctx, cfg, hasher)
	if err != nil {
		return err
	}
	defer cleanupPG()

	revocations, challenges, cleanupRedis, err := buildSessionStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanupRedis()

	signer, err := auth.NewJWTSigner([]byte(cfg.TokenSecret))
	if err != nil {
		return fmt.Errorf("failed to create token signer: %w", err)
	}
	tokens, err := auth.NewTokenServiceTTL(signer, revocations, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	service, err := auth.NewService(identities, challenges, tokens, hasher,
		auth.NewLogMailer(logger),
		auth.WithChallengeTTL(cfg.ChallengeTTL),
		auth.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	// Start observability server if configured
	var obsServer *observability.Server
	var apiOpts []httpapi.Option
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool { return true })
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		apiOpts = append(apiOpts, httpapi.WithMetrics(obsServer.Metrics()))
	}
	apiOpts = append(apiOpts, httpapi.WithLogger(logger))

	apiServer, err := httpapi.NewServer(cfg.ListenAddr, service, apiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}
	apiErrChan, err := apiServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start api server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Control socket for local process management. Failure to bind is not
	// fatal; the service still runs without it.
	ctlServer := control.NewServer(version, control.ShutdownFunc(cancel))
	if err := ctlServer.Start(); err != nil {
		logger.Warn("control socket unavailable", "error", err)
		ctlServer = nil
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("gatehouse ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if ctlServer != nil {
		if err := ctlServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping control socket", "error", err)
		}
	}
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// buildIdentityStore constructs the configured identity store. The returned
// cleanup closes any backend connection pool.
func buildIdentityStore(ctx context.Context, cfg *config.Config, hasher auth.PasswordHasher) (auth.IdentityStore, func(), error) {
	noop := func() {}

	switch cfg.IdentityBackend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		if err := waitForBackend(ctx, "postgres", pool.Ping); err != nil {
			pool.Close()
			return nil, noop, err
		}
		if err := authpg.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("failed to ensure schema: %w", err)
		}
		store, err := authpg.NewIdentityStore(pool, hasher)
		if err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("failed to create identity store: %w", err)
		}
		slog.Info("connected to postgres")
		return store, pool.Close, nil

	default:
		store, err := memory.NewIdentityStore(hasher)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create identity store: %w", err)
		}
		return store, noop, nil
	}
}

// buildSessionStores constructs the configured revocation and challenge
// stores. The returned cleanup closes any backend client.
func buildSessionStores(ctx context.Context, cfg *config.Config) (auth.RevocationStore, auth.ChallengeStore, func(), error) {
	noop := func() {}

	switch cfg.SessionBackend {
	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		cleanup := func() {
			if err := client.Close(); err != nil {
				slog.Warn("error closing redis client", "error", err)
			}
		}
		ping := func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		if err := waitForBackend(ctx, "redis", ping); err != nil {
			cleanup()
			return nil, nil, noop, err
		}
		revocations, err := authredis.NewRevocationStore(client)
		if err != nil {
			cleanup()
			return nil, nil, noop, fmt.Errorf("failed to create revocation store: %w", err)
		}
		challenges, err := authredis.NewChallengeStore(client)
		if err != nil {
			cleanup()
			return nil, nil, noop, fmt.Errorf("failed to create challenge store: %w", err)
		}
		slog.Info("connected to redis", "addr", cfg.RedisAddr)
		return revocations, challenges, cleanup, nil

	default:
		return memory.NewRevocationStore(), memory.NewChallengeStore(), noop, nil
	}
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error, so a server failure triggers graceful shutdown of the
// whole process. It exits when an error is received, the channel is closed,
// or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}

// waitForBackend pings a backend with exponential backoff until it answers
// or the retry budget runs out. Service startup commonly races container
// startup; a short grace period avoids crash-looping on deploy.
func waitForBackend(ctx context.Context, name string, ping func(context.Context) error) error {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			slog.Warn("backend not ready, retrying", "backend", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s did not become ready: %w", name, err)
	}
	return nil
}
