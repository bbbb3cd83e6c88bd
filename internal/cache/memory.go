package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter"
)

// Compile-time check that MemoryCache implements Service.
var _ Service = (*MemoryCache)(nil)

// MemoryCache implements Service in-process on top of the otter S3-FIFO
// cache. Used for single-node deployments and as the cache under unit tests.
// The TTL is fixed at construction; per-call TTLs are accepted for interface
// compatibility but the builder's TTL governs expiry.
type MemoryCache struct {
	store otter.Cache[string, []byte]
}

// NewMemoryCache builds an in-memory cache with a hard item cap and a TTL
// that bounds how long a missed invalidation can linger.
func NewMemoryCache(capacity int, ttl time.Duration) (*MemoryCache, error) {
	store, err := otter.MustBuilder[string, []byte](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}
	return &MemoryCache{store: store}, nil
}

// Get returns the value for key. Never errors.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := c.store.Get(key)
	return val, ok, nil
}

// Add stores value only if key is absent.
func (c *MemoryCache) Add(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.store.SetIfAbsent(key, value)
	return nil
}

// Set stores value unconditionally.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.store.Set(key, value)
	return nil
}

// SetMany stores every entry.
func (c *MemoryCache) SetMany(_ context.Context, entries map[string][]byte, _ time.Duration) error {
	for key, value := range entries {
		c.store.Set(key, value)
	}
	return nil
}

// Delete evicts a single key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

// DeleteMany evicts all given keys.
func (c *MemoryCache) DeleteMany(_ context.Context, keys []string) error {
	for _, key := range keys {
		c.store.Delete(key)
	}
	return nil
}

// Close shuts down the cache and its background cleanup goroutines.
func (c *MemoryCache) Close() error {
	c.store.Close()
	return nil
}
