package domain

import "context"

// Storage keys used by the board actor.
const (
	// ConfigKey holds the board's serialized BoardConfig.
	ConfigKey = "config"
	// PostKeyPrefix namespaces post entries; the full key is PostKeyPrefix + post id.
	PostKeyPrefix = "post."
)

// PostKey returns the storage key for a post id.
func PostKey(id string) string {
	return PostKeyPrefix + id
}

// Storage is the durable key-value store a board actor persists to.
// Keys are scoped per board. Implementations do not retry: a failure
// propagates to the operation that triggered the call.
type Storage interface {
	// Get returns the value for key, or (nil, false, nil) if absent.
	Get(ctx context.Context, boardID, key string) ([]byte, bool, error)
	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, boardID, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, boardID, key string) error
	// List returns all entries whose key starts with prefix.
	List(ctx context.Context, boardID, prefix string) (map[string][]byte, error)
}
