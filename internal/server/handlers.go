package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/corkboard/internal/metrics"
	"github.com/pscheid92/corkboard/internal/platform/correlation"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Boards are public; access control is a non-goal.
	},
}

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.String(http.StatusNotFound, "no board found")
}

// handleBoardSnapshot serves the board's current state as a plain JSON
// document. Like any other board request it triggers lazy initialization.
func (s *Server) handleBoardSnapshot(c echo.Context) error {
	boardID := c.Param("board")

	snapshot, err := s.registry.Get(boardID).Snapshot(c.Request().Context())
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to load board", "board_id", boardID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load board"})
	}

	return c.JSON(http.StatusOK, snapshot)
}

// handleWebSocket upgrades the connection and hands it to the board actor.
// The handler blocks for the lifetime of the connection.
func (s *Server) handleWebSocket(c echo.Context) error {
	boardID := c.Param("board")

	if !websocket.IsWebSocketUpgrade(c.Request()) {
		return c.String(http.StatusBadRequest, "expected websocket")
	}

	if !s.connLimiter.Acquire() {
		metrics.ConnectionsRejectedTotal.Inc()
		slog.Warn("Rejecting WebSocket: connection limit reached", "limit", s.connLimiter.Max())
		return c.String(http.StatusServiceUnavailable, "too many connections")
	}
	defer s.connLimiter.Release()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response.
		slog.Debug("WebSocket upgrade failed", "board_id", boardID, "error", err)
		return nil
	}

	if err := s.registry.Get(boardID).ServeConn(c.Request().Context(), conn); err != nil {
		slog.ErrorContext(c.Request().Context(), "WebSocket session failed", "board_id", boardID, "error", err)
		_ = conn.Close()
	}

	return nil
}
