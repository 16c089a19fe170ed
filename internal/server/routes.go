package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// A request without a board identifier has nowhere to go.
	s.echo.GET("/", s.handleRoot)

	// Board routes. Echo matches static routes (health, metrics) before
	// the :board parameter.
	rateLimiter := newRateLimiter(s.config.HTTPRateLimit, s.config.HTTPRateBurst)
	s.echo.GET("/:board", s.handleBoardSnapshot, rateLimiter)
	s.echo.GET("/:board/ws", s.handleWebSocket)
}
