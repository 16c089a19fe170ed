package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/corkboard/internal/domain"
	"github.com/pscheid92/corkboard/internal/platform/config"
	"github.com/pscheid92/corkboard/internal/platform/logging"
	"github.com/pscheid92/corkboard/internal/postgres"
	"github.com/pscheid92/corkboard/internal/redis"
	"github.com/pscheid92/corkboard/internal/registry"
	"github.com/pscheid92/corkboard/internal/server"
	"github.com/pscheid92/corkboard/internal/storage"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupStore constructs the configured storage backend. The returned cleanup
// releases its resources; the health check pings it for /health/ready.
func setupStore(ctx context.Context, cfg *config.Config) (domain.Storage, server.HealthCheck, func()) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		check := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		cleanup := func() { _ = client.Close() }
		return redis.NewBoardStore(client), check, cleanup

	case config.BackendPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := postgres.Connect(connectCtx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := postgres.RunMigrationsWithLock(connectCtx, pool); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		check := func(ctx context.Context) error { return pool.Ping(ctx) }
		return postgres.NewBoardStore(pool), check, pool.Close

	default:
		slog.Warn("Using in-memory store: boards will not survive a restart")
		return storage.NewMemory(), nil, func() {}
	}
}

func runGracefulShutdown(srv *server.Server, reg *registry.Registry) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		reg.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "store", cfg.StoreBackend)

	store, healthCheck, cleanup := setupStore(context.Background(), cfg)
	defer cleanup()

	reg := registry.New(store, clock)
	srv := server.NewServer(cfg, reg, healthCheck)

	done := runGracefulShutdown(srv, reg)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
