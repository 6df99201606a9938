package cache

import (
	"context"
	"time"
)

// Cache is a sharded, in-memory key/value store with per-entry expiration.
// All methods are safe for concurrent use by multiple goroutines.
//
// An entry is logically absent once now - insertedAt > ttl, even if it is
// still resident until the next sweep. Misses are a normal, silent outcome;
// no operation returns an error except GetOrLoad.
type Cache[K comparable, V any] interface {
	// Set inserts or overwrites k→v using the cache's DefaultTTL.
	Set(k K, v V)

	// SetWithTTL inserts or overwrites k→v with a per-key TTL.
	// A non-positive ttl disables expiration for this entry.
	SetWithTTL(k K, v V, ttl time.Duration)

	// Get returns the value for k if the entry is fresh.
	// An expired entry is evicted on access and reported as a miss.
	Get(k K) (V, bool)

	// Has reports whether a fresh entry exists for k.
	// It applies the same freshness check (and lazy eviction) as Get.
	Has(k K) bool

	// Delete removes k and reports whether it was resident.
	Delete(k K) bool

	// Clear removes every entry.
	Clear()

	// Cleanup evicts every expired entry and returns how many were removed.
	// The background sweeper calls it every Options.SweepInterval.
	Cleanup() int

	// Len returns the number of resident entries, including expired
	// entries that have not been swept yet.
	Len() int

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced (singleflight).
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Close stops the background sweeper and marks the cache closed.
	// It is idempotent; operations after Close are ignored.
	Close() error
}
