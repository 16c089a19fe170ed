// Package server exposes the HTTP surface: board snapshots, WebSocket
// upgrades, health endpoints and metrics.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/corkboard/internal/platform/config"
	"github.com/pscheid92/corkboard/internal/registry"
)

// HealthCheck pings the configured storage backend.
type HealthCheck func(ctx context.Context) error

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	registry    *registry.Registry
	connLimiter *GlobalConnectionLimiter
	healthCheck HealthCheck
	startTime   time.Time
}

// NewServer wires the HTTP server. healthCheck may be nil when the backend
// has no external dependency (memory store).
func NewServer(cfg *config.Config, reg *registry.Registry, healthCheck HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(correlationMiddleware)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:        e,
		config:      cfg,
		registry:    reg,
		connLimiter: NewGlobalConnectionLimiter(int64(cfg.MaxWebSocketConnections)),
		healthCheck: healthCheck,
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
