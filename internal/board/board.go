// Package board implements the board actor: the single process-wide owner of
// one board's durable config, its post map, and its live session roster.
// All state transitions go through the actor's command loop, so mutations
// for a board are serialized even though many connections are open at once.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/corkboard/internal/domain"
	"github.com/pscheid92/corkboard/internal/metrics"
	"github.com/pscheid92/corkboard/internal/platform/logging"
	"github.com/pscheid92/corkboard/internal/protocol"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	storeTimeout   = 2 * time.Second
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
	commandBuffer  = 256
)

// ErrStopped is returned by exported methods after the actor has shut down.
var ErrStopped = errors.New("board actor stopped")

// --- Command types ---

type boardCmd interface{ isBoardCmd() }

type baseBoardCmd struct{}

func (baseBoardCmd) isBoardCmd() {}

type joinCmd struct {
	baseBoardCmd
	connection   *websocket.Conn
	replyChannel chan *session
}

type inboundCmd struct {
	baseBoardCmd
	sess *session
	data []byte
}

type leaveCmd struct {
	baseBoardCmd
	sess *session
}

type snapshotCmd struct {
	baseBoardCmd
	replyChannel chan domain.Snapshot
}

type stopCmd struct {
	baseBoardCmd
	done chan struct{}
}

// --- Actor ---

// Board is the actor for one board. Construct with New; state loads lazily
// on first use (single-flight), and the command loop starts once loading
// succeeds.
type Board struct {
	id    string
	store domain.Storage
	clock clockwork.Clock
	log   *slog.Logger

	cmdCh   chan boardCmd
	stopped chan struct{}

	ready     atomic.Bool
	initGroup singleflight.Group

	// Owned by the run goroutine once ready (populated by load before the
	// loop starts).
	config   domain.BoardConfig
	posts    map[string]domain.Post
	sessions []*session
}

// New creates an uninitialized board actor. No storage is touched until the
// first request arrives.
func New(id string, store domain.Storage, clock clockwork.Clock) *Board {
	return &Board{
		id:      id,
		store:   store,
		clock:   clock,
		log:     logging.WithBoard(id),
		cmdCh:   make(chan boardCmd, commandBuffer),
		stopped: make(chan struct{}),
		posts:   make(map[string]domain.Post),
	}
}

// ID returns the board identifier.
func (b *Board) ID() string {
	return b.id
}

// ensureReady performs initialization-on-first-use. Concurrent callers
// collapse onto a single in-flight load; a failed load is forgotten so the
// next caller retries, a successful one is permanent for the actor's life.
func (b *Board) ensureReady(ctx context.Context) error {
	if b.ready.Load() {
		return nil
	}

	_, err, _ := b.initGroup.Do("init", func() (any, error) {
		if b.ready.Load() {
			return nil, nil
		}
		if err := b.load(ctx); err != nil {
			return nil, err
		}
		go b.run()
		b.ready.Store(true)
		metrics.BoardsActive.Inc()
		b.log.Info("Board initialized", "posts", len(b.posts), "title", b.config.Title)
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("board %q initialization failed: %w", b.id, err)
	}
	return nil
}

// load reads the config and the full post namespace concurrently. A missing
// config is synthesized from the board id and persisted before the actor is
// considered ready.
func (b *Board) load(ctx context.Context) error {
	var (
		configRaw   []byte
		configFound bool
		postsRaw    map[string][]byte
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		configRaw, configFound, err = b.store.Get(gctx, b.id, domain.ConfigKey)
		return err
	})
	g.Go(func() error {
		var err error
		postsRaw, err = b.store.List(gctx, b.id, domain.PostKeyPrefix)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if configFound {
		if err := json.Unmarshal(configRaw, &b.config); err != nil {
			return fmt.Errorf("corrupt board config: %w", err)
		}
	} else {
		b.config = domain.BoardConfig{ID: b.id, Title: b.id}
		data, err := json.Marshal(b.config)
		if err != nil {
			return err
		}
		if err := b.store.Put(ctx, b.id, domain.ConfigKey, data); err != nil {
			return fmt.Errorf("failed to persist new board config: %w", err)
		}
	}

	posts := make(map[string]domain.Post, len(postsRaw))
	for key, raw := range postsRaw {
		post, err := domain.DecodePost(raw)
		if err != nil {
			return fmt.Errorf("corrupt post %q: %w", key, err)
		}
		posts[key] = post
	}
	b.posts = posts

	return nil
}

func (b *Board) run() {
	defer close(b.stopped)

	for cmd := range b.cmdCh {
		switch c := cmd.(type) {
		case joinCmd:
			c.replyChannel <- b.handleJoin(c.connection)
		case inboundCmd:
			b.handleInbound(c.sess, c.data)
		case leaveCmd:
			b.handleLeave(c.sess)
		case snapshotCmd:
			c.replyChannel <- b.snapshot()
		case stopCmd:
			b.handleStop()
			close(c.done)
			return
		}
	}
}

// enqueue submits a command unless the actor has stopped.
func (b *Board) enqueue(cmd boardCmd) bool {
	select {
	case <-b.stopped:
		return false
	default:
	}
	select {
	case b.cmdCh <- cmd:
		return true
	case <-b.stopped:
		return false
	}
}

// --- Public API ---

// ServeConn drives one accepted WebSocket connection: registers a session,
// pumps inbound frames into the actor, and deregisters on close or error.
// It blocks until the connection ends.
func (b *Board) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	if err := b.ensureReady(ctx); err != nil {
		return err
	}

	sess, err := b.join(conn)
	if err != nil {
		return err
	}

	metrics.SessionsConnected.Inc()
	defer metrics.SessionsConnected.Dec()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if !b.enqueue(inboundCmd{sess: sess, data: data}) {
			return ErrStopped
		}
	}

	b.enqueue(leaveCmd{sess: sess})
	return nil
}

func (b *Board) join(conn *websocket.Conn) (*session, error) {
	reply := make(chan *session, 1)
	if !b.enqueue(joinCmd{connection: conn, replyChannel: reply}) {
		return nil, ErrStopped
	}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case sess := <-reply:
		return sess, nil
	case <-timer.Chan():
		return nil, fmt.Errorf("join command timed out after %v", commandTimeout)
	}
}

// Snapshot returns the board's full current state. Triggers lazy
// initialization like any other request.
func (b *Board) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	if err := b.ensureReady(ctx); err != nil {
		return domain.Snapshot{}, err
	}

	reply := make(chan domain.Snapshot, 1)
	if !b.enqueue(snapshotCmd{replyChannel: reply}) {
		return domain.Snapshot{}, ErrStopped
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
}

// Stop shuts the actor down, closing every live connection. A board that was
// never initialized has nothing to stop.
func (b *Board) Stop() {
	if !b.ready.Load() {
		return
	}

	done := make(chan struct{})
	if !b.enqueue(stopCmd{done: done}) {
		return
	}

	timer := b.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.Chan():
		b.log.Warn("Board stop timeout exceeded", "timeout", stopTimeout)
	}
}

// --- Loop-side handlers for lifecycle commands ---

func (b *Board) handleJoin(conn *websocket.Conn) *session {
	sess := &session{
		id:     uuid.New(),
		name:   b.uniqueDefaultName(),
		writer: newClientWriter(conn, b.clock),
	}
	b.sessions = append(b.sessions, sess)

	b.sendTo(sess, protocol.NewSessionEvent{
		Type:  protocol.TypeNewSession,
		Name:  sess.name,
		Board: b.snapshot(),
	})

	b.log.Debug("Session joined", "session_id", sess.id.String(), "name", sess.name, "total_sessions", len(b.sessions))
	return sess
}

func (b *Board) handleLeave(sess *session) {
	if !b.inRoster(sess) {
		// Already pruned by a failed broadcast send.
		return
	}

	sess.quit = true
	b.removeFromRoster(sess)
	sess.writer.stop()

	b.log.Debug("Session left", "session_id", sess.id.String(), "name", sess.name, "remaining_sessions", len(b.sessions))

	if sess.named {
		b.broadcast(protocol.TypeQuit, protocol.QuitEvent{Type: protocol.TypeQuit, Name: sess.name})
	}
}

func (b *Board) handleStop() {
	b.log.Info("Board shutting down", "sessions", len(b.sessions))
	for _, sess := range b.sessions {
		sess.quit = true
		sess.writer.stop()
	}
	b.sessions = nil
	metrics.BoardsActive.Dec()
}

// --- Roster helpers (actor goroutine only) ---

func (b *Board) inRoster(sess *session) bool {
	for _, s := range b.sessions {
		if s == sess {
			return true
		}
	}
	return false
}

func (b *Board) removeFromRoster(sess *session) {
	live := b.sessions[:0]
	for _, s := range b.sessions {
		if s != sess {
			live = append(live, s)
		}
	}
	b.sessions = live
}

func (b *Board) sessionNames() []string {
	names := make([]string, 0, len(b.sessions))
	for _, s := range b.sessions {
		names = append(names, s.name)
	}
	return names
}

func (b *Board) nameInUse(name string, exclude *session) bool {
	for _, s := range b.sessions {
		if s != exclude && s.name == name {
			return true
		}
	}
	return false
}

// uniqueDefaultName generates Anonymous.<unix-ms>, probing upward so two
// sessions joining within the same millisecond still get distinct names.
func (b *Board) uniqueDefaultName() string {
	ts := b.clock.Now().UnixMilli()
	for {
		name := defaultName(ts)
		if !b.nameInUse(name, nil) {
			return name
		}
		ts++
	}
}

func (b *Board) snapshot() domain.Snapshot {
	posts := make([]domain.Post, 0, len(b.posts))
	for _, p := range b.posts {
		posts = append(posts, p)
	}
	// Post ids are millisecond timestamps; sorting them yields insertion
	// order, the default display order.
	sortPostsByID(posts)

	return domain.Snapshot{
		Posts:  posts,
		Config: b.config,
		Users:  b.sessionNames(),
	}
}
