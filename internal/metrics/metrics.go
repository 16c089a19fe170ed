package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Board actor metrics
var (
	// BoardsActive tracks the number of initialized board actors
	BoardsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "board_actors_active",
			Help: "Number of board actors resident in this instance",
		},
	)

	// SessionsConnected tracks currently connected WebSocket sessions
	SessionsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "board_sessions_connected",
			Help: "Currently connected WebSocket sessions across all boards",
		},
	)

	// MessagesReceivedTotal tracks inbound messages by recognized type
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_messages_received_total",
			Help: "Inbound client messages by message type",
		},
		[]string{"type"},
	)

	// UnknownMessagesTotal tracks inbound messages with unrecognized types
	UnknownMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "board_unknown_messages_total",
			Help: "Inbound messages ignored due to unrecognized type",
		},
	)

	// ParseErrorsTotal tracks malformed inbound frames
	ParseErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "board_parse_errors_total",
			Help: "Inbound frames rejected as malformed",
		},
	)

	// BroadcastEventsTotal tracks fan-out events by event type
	BroadcastEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_broadcast_events_total",
			Help: "Events broadcast to board sessions by event type",
		},
		[]string{"type"},
	)

	// PrunedSessionsTotal tracks sessions evicted by a failed send
	PrunedSessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "board_pruned_sessions_total",
			Help: "Sessions pruned from the roster after a failed send",
		},
	)
)

// WebSocket writer metrics
var (
	// WebSocketMessageSendDuration tracks time spent writing a single frame
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket frame write duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// WebSocketPingFailures tracks failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Failed WebSocket keepalive pings",
		},
	)

	// ConnectionsRejectedTotal tracks upgrades refused by the connection limiter
	ConnectionsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_connections_rejected_total",
			Help: "WebSocket upgrades refused because the instance was at capacity",
		},
	)
)

// Store metrics
var (
	// StoreOpsTotal tracks durable store operations by operation and status
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Durable store operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// StoreOpDuration tracks durable store operation latency in seconds
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Durable store operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)
