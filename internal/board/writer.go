package board

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/corkboard/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

var (
	errWriterClosed   = errors.New("connection writer closed")
	errSendBufferFull = errors.New("send buffer full")
)

// messageWriter is the actor's view of one connection's outbound side.
// A trySend error means the connection is dead (or hopelessly slow) and the
// session must be pruned.
type messageWriter interface {
	trySend(data []byte) error
	failed() bool
	stop()
	closeBroken()
}

// clientWriter owns all writes to one WebSocket connection. A dedicated
// goroutine drains the send buffer and keeps the connection alive with pings;
// any write failure closes failedCh so the actor can observe the death
// without blocking.
type clientWriter struct {
	connection *websocket.Conn
	clock      clockwork.Clock

	sendChannel chan []byte
	doneChannel chan struct{}
	failedCh    chan struct{}

	stopOnce sync.Once
	failOnce sync.Once
	wg       sync.WaitGroup
}

func newClientWriter(connection *websocket.Conn, clock clockwork.Clock) *clientWriter {
	cw := &clientWriter{
		connection:  connection,
		clock:       clock,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
		failedCh:    make(chan struct{}),
	}
	cw.configurePongHandler()
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg, ok := <-cw.sendChannel:
			if !ok {
				return
			}
			start := cw.clock.Now()
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				cw.markFailed()
				return
			}
			metrics.WebSocketMessageSendDuration.Observe(cw.clock.Since(start).Seconds())
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				cw.markFailed()
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

// trySend queues a message without blocking. It fails when the writer has
// died or when the buffer is full (a client this slow is treated as dead).
func (cw *clientWriter) trySend(data []byte) error {
	select {
	case <-cw.failedCh:
		return errWriterClosed
	case <-cw.doneChannel:
		return errWriterClosed
	default:
	}

	select {
	case cw.sendChannel <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// failed reports whether the writer has died without attempting a send.
func (cw *clientWriter) failed() bool {
	select {
	case <-cw.failedCh:
		return true
	default:
		return false
	}
}

func (cw *clientWriter) markFailed() {
	cw.failOnce.Do(func() {
		close(cw.failedCh)
		// Unblock the read pump as well.
		_ = cw.connection.Close()
	})
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// closeBroken force-closes the connection with a protocol error close code.
// Used when a message arrives on a session that is already marked quit.
func (cw *clientWriter) closeBroken() {
	deadline := cw.clock.Now().Add(writeDeadline)
	msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "websocket broken")
	_ = cw.connection.WriteControl(websocket.CloseMessage, msg, deadline)
	cw.stop()
}

func (cw *clientWriter) configurePongHandler() {
	cw.updateReadDeadline()
	cw.connection.SetPongHandler(func(string) error {
		cw.updateReadDeadline()
		return nil
	})
}

func (cw *clientWriter) updateWriteDeadline() {
	_ = cw.connection.SetWriteDeadline(cw.clock.Now().Add(writeDeadline))
}

func (cw *clientWriter) updateReadDeadline() {
	_ = cw.connection.SetReadDeadline(cw.clock.Now().Add(pongDeadline))
}
