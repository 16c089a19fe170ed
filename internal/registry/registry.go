// Package registry maps board identifiers to board actors, guaranteeing
// exactly one actor instance per identifier process-wide.
package registry

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/corkboard/internal/board"
	"github.com/pscheid92/corkboard/internal/domain"
)

// Registry creates board actors on first reference and owns their lifetime.
type Registry struct {
	store domain.Storage
	clock clockwork.Clock

	mu     sync.Mutex
	boards map[string]*board.Board
}

// New creates an empty registry backed by the given store.
func New(store domain.Storage, clock clockwork.Clock) *Registry {
	return &Registry{
		store:  store,
		clock:  clock,
		boards: make(map[string]*board.Board),
	}
}

// Get returns the single actor for a board identifier, creating it on first
// reference. Creation is cheap; the actor loads its state lazily on first
// request.
func (r *Registry) Get(boardID string) *board.Board {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boards[boardID]
	if !ok {
		b = board.New(boardID, r.store, r.clock)
		r.boards[boardID] = b
	}
	return b
}

// Len returns the number of resident actors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Stop shuts down every resident actor, closing all live connections.
func (r *Registry) Stop() {
	r.mu.Lock()
	boards := make([]*board.Board, 0, len(r.boards))
	for _, b := range r.boards {
		boards = append(boards, b)
	}
	r.mu.Unlock()

	for _, b := range boards {
		b.Stop()
	}
}
