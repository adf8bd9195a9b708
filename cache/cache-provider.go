package cache

import "errors"

var (
	ErrObjectTooLarge = errors.New("object exceeds maximum object size")
	ErrEmptyObject    = errors.New("object is empty")
)

// CacheProvider is an interface for a cache provider.
// It stores and retrieves []byte values, which represent raw HTTP responses,
// keyed by the request target exactly as the client sent it.
//
// Implementations must be thread-safe!
type CacheProvider interface {
	// Get returns a copy of the cached response for the given key, if it exists.
	// It also returns a boolean indicating whether retrieval was successful.
	Get(key string) ([]byte, bool)
	// Put stores the given response in the cache under the given key,
	// evicting another entry if the cache is full.
	Put(key string, value []byte) error
}

// Entry describes one occupied cache slot.
type Entry struct {
	Slot      int    `json:"slot"`
	Key       string `json:"key"`
	Size      int    `json:"size"`
	Timestamp uint64 `json:"timestamp"`
}
