package kvdoc

import "context"

// Store is the key-value port the mapping layer runs on. Each operation is
// expected to be atomic for a single key; nothing spans several keys.
//
// Implementations decide their own transport-level retry, cancellation and
// timeout behavior; ctx is passed through untouched.
type Store interface {
	// Get returns the value stored under key, or nil (and no error) if the
	// key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys returns all keys matching a Redis-style glob pattern, in no
	// particular order.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}
