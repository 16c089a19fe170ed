// Package storage provides the in-memory Storage backend, used in
// development mode and by tests.
package storage

import (
	"context"
	"strings"
	"sync"
)

// Memory is a mutex-guarded in-process implementation of domain.Storage.
// Nothing survives a restart; it exists so the server can run without
// Redis or Postgres and so tests can inspect persisted state directly.
type Memory struct {
	mu     sync.RWMutex
	boards map[string]map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{boards: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, boardID, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.boards[boardID][key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

func (m *Memory) Put(_ context.Context, boardID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	board, ok := m.boards[boardID]
	if !ok {
		board = make(map[string][]byte)
		m.boards[boardID] = board
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	board[key] = cp
	return nil
}

func (m *Memory) Delete(_ context.Context, boardID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.boards[boardID], key)
	return nil
}

func (m *Memory) List(_ context.Context, boardID, prefix string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte)
	for key, value := range m.boards[boardID] {
		if strings.HasPrefix(key, prefix) {
			cp := make([]byte, len(value))
			copy(cp, value)
			out[key] = cp
		}
	}
	return out, nil
}

// Keys returns all keys stored for a board, for test assertions.
func (m *Memory) Keys(boardID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.boards[boardID]))
	for key := range m.boards[boardID] {
		keys = append(keys, key)
	}
	return keys
}
