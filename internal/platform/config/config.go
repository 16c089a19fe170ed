package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Backend names accepted for STORE_BACKEND.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	StoreBackend string `env:"STORE_BACKEND" default:"redis"`
	RedisURL     string `env:"REDIS_URL"`
	DatabaseURL  string `env:"DATABASE_URL"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`

	HTTPRateLimit float64 `env:"HTTP_RATE_LIMIT" default:"20"`
	HTTPRateBurst int     `env:"HTTP_RATE_BURST" default:"40"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND is %q", BackendRedis)
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
	case BackendMemory:
		// No external dependencies; intended for development and tests.
	default:
		return fmt.Errorf("STORE_BACKEND must be one of %q, %q, %q (got %q)",
			BackendRedis, BackendPostgres, BackendMemory, cfg.StoreBackend)
	}

	if cfg.MaxWebSocketConnections <= 0 {
		return fmt.Errorf("MAX_WEBSOCKET_CONNECTIONS must be positive (got %d)", cfg.MaxWebSocketConnections)
	}

	if cfg.HTTPRateLimit <= 0 || cfg.HTTPRateBurst <= 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT and HTTP_RATE_BURST must be positive")
	}

	return nil
}
