package cache

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// MemoryStore is the default Store backend: an in-process sturdyc client.
// It applies the client-wide TTL it was built with; the per-entry TTL of the
// Store contract is honored by networked backends instead.
type MemoryStore struct {
	client *sturdyc.Client[[]byte]
}

// NewMemoryStore builds a sharded in-process store. Expired entries are
// evicted in the background by sturdyc.
func NewMemoryStore(capacity, numShards int, ttl time.Duration, evictionPercentage int) *MemoryStore {
	return &MemoryStore{
		client: sturdyc.New[[]byte](capacity, numShards, ttl, evictionPercentage),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := s.client.Get(key)
	return value, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.client.Set(key, value)
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}
