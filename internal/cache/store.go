package cache

import (
	"context"
	"time"
)

// Store is the key-value contract the query cache runs on: get, set with a
// TTL, delete. The relational store stays the source of truth; everything
// behind a Store is disposable. No multi-key atomicity is assumed.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value under key for at most ttl. Backends that only
	// support a store-wide TTL may apply that instead.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes the given keys. Deleting an absent key is not an error.
	Del(ctx context.Context, keys ...string) error
}
