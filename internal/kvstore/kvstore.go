package kvstore

import "context"

// Store is the abstraction over different key-value backends. Values are
// opaque JSON documents; keys are flat strings namespaced by prefix
// ("student:", "attendance:", ...).
type Store interface {
	// Get returns the value at key, or nil when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set writes value at key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// ScanPrefix returns the values of all keys starting with prefix.
	// Order is unspecified.
	ScanPrefix(ctx context.Context, prefix string) ([][]byte, error)
	// Healthy reports whether the backend is reachable.
	Healthy(ctx context.Context) bool
	Close() error
}
