// Package cache provides the decision cache for toggle evaluation. It keeps
// serialized toggle records and membership lists keyed by kind and name so
// the hot evaluation path never has to reach durable storage.
//
// Two backends implement the same contract: Redis for shared deployments and
// an in-process store for single-node or test use. Callers must treat every
// error as a cache miss and fall through to the definition store; the cache
// is an accelerator, never a source of truth.
package cache

import (
	"context"
	"time"
)

// Service defines the decision cache contract. Single-key operations are
// atomic; SetMany and DeleteMany are best-effort and may apply partially
// under failure, which the re-fetch-on-miss path tolerates.
type Service interface {
	// Get returns the value for key, with ok=false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Add stores value only if key is absent.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Set stores value unconditionally.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetMany stores every entry. No cross-key atomicity guarantee.
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error

	// Delete evicts a single key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany evicts all given keys.
	DeleteMany(ctx context.Context, keys []string) error

	// Close releases backend resources.
	Close() error
}
