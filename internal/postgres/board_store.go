package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BoardStore implements domain.Storage on the board_entries table.
// Values are stored as jsonb, one row per (board, key).
type BoardStore struct {
	pool *pgxpool.Pool
}

// NewBoardStore creates a Postgres-backed board store.
func NewBoardStore(pool *pgxpool.Pool) *BoardStore {
	return &BoardStore{pool: pool}
}

func (s *BoardStore) Get(ctx context.Context, boardID, key string) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM board_entries WHERE board_id = $1 AND key = $2`,
		boardID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *BoardStore) Put(ctx context.Context, boardID, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO board_entries (board_id, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (board_id, key)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		boardID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}
	return nil
}

func (s *BoardStore) Delete(ctx context.Context, boardID, key string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM board_entries WHERE board_id = $1 AND key = $2`,
		boardID, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *BoardStore) List(ctx context.Context, boardID, prefix string) (map[string][]byte, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM board_entries
		 WHERE board_id = $1 AND starts_with(key, $2)`,
		boardID, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list prefix %q: %w", prefix, err)
	}
	return out, nil
}
