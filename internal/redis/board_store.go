package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

// BoardStore implements domain.Storage on Redis. Each board's entries live
// under the key namespace "board:{id}:{key}", so List is a SCAN over
// "board:{id}:{prefix}*" followed by an MGET.
type BoardStore struct {
	rdb *goredis.Client
}

// NewBoardStore creates a Redis-backed board store.
func NewBoardStore(rdb *goredis.Client) *BoardStore {
	return &BoardStore{rdb: rdb}
}

func boardKey(boardID, key string) string {
	return fmt.Sprintf("board:%s:%s", boardID, key)
}

func (s *BoardStore) Get(ctx context.Context, boardID, key string) ([]byte, bool, error) {
	value, err := s.rdb.Get(ctx, boardKey(boardID, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *BoardStore) Put(ctx context.Context, boardID, key string, value []byte) error {
	if err := s.rdb.Set(ctx, boardKey(boardID, key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to put %q: %w", key, err)
	}
	return nil
}

func (s *BoardStore) Delete(ctx context.Context, boardID, key string) error {
	if err := s.rdb.Del(ctx, boardKey(boardID, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *BoardStore) List(ctx context.Context, boardID, prefix string) (map[string][]byte, error) {
	pattern := boardKey(boardID, prefix) + "*"
	stripLen := len(boardKey(boardID, ""))

	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan prefix %q: %w", prefix, err)
	}

	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %d entries: %w", len(keys), err)
	}

	for i, raw := range values {
		// A key may expire between SCAN and MGET; skip the hole.
		str, ok := raw.(string)
		if !ok {
			continue
		}
		out[keys[i][stripLen:]] = []byte(str)
	}
	return out, nil
}
