package cache

import (
	"sync"
	"sync/atomic"
)

// shard is an independent partition of the cache with its own lock and map.
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu sync.RWMutex
	m  map[K]*entry[V]

	opt Options[K, V]

	// total is the cache-wide resident count shared by all shards,
	// so the Size gauge reports the whole cache rather than one shard.
	total *atomic.Int64

	hits   atomic.Int64
	misses atomic.Int64
	evicts atomic.Int64
}

func newShard[K comparable, V any](opt Options[K, V], total *atomic.Int64) *shard[K, V] {
	return &shard[K, V]{
		m:     make(map[K]*entry[V]),
		opt:   opt,
		total: total,
	}
}

// Set inserts or overwrites an entry stamped with insertedAt.
func (s *shard[K, V]) Set(k K, v V, insertedAt, ttl int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.m[k]; ok {
		e.val, e.insertedAt, e.ttl = v, insertedAt, ttl
		return
	}
	s.m[k] = &entry[V]{val: v, insertedAt: insertedAt, ttl: ttl}
	s.resize(1)
}

// Get returns the value if the entry is fresh at now.
// An expired entry is evicted (EvictTTL) and reported as a miss.
func (s *shard[K, V]) Get(k K, now int64) (V, bool) {
	s.mu.RLock()
	e, ok := s.m[k]
	if ok && !e.expired(now) {
		v := e.val
		s.mu.RUnlock()
		s.hits.Add(1)
		s.opt.Metrics.Hit()
		return v, true
	}
	s.mu.RUnlock()

	if ok {
		s.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if e, ok := s.m[k]; ok {
			if !e.expired(now) {
				v := e.val
				s.mu.Unlock()
				s.hits.Add(1)
				s.opt.Metrics.Hit()
				return v, true
			}
			s.evictLocked(k, e, EvictTTL)
		}
		s.mu.Unlock()
	}

	s.misses.Add(1)
	s.opt.Metrics.Miss()
	var zero V
	return zero, false
}

// Delete removes k. Returns true if the entry was resident.
func (s *shard[K, V]) Delete(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[k]; !ok {
		return false
	}
	delete(s.m, k)
	// Explicit deletes are not evictions; only the size gauge moves.
	s.resize(-1)
	return true
}

// Clear drops every entry in the shard.
func (s *shard[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.m)
	s.m = make(map[K]*entry[V])
	s.resize(-n)
}

// Sweep evicts every entry expired at now and returns the count.
func (s *shard[K, V]) Sweep(now int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.m {
		if e.expired(now) {
			s.evictLocked(k, e, EvictSweep)
			n++
		}
	}
	return n
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// evictLocked removes an expired entry and notifies hooks. mu must be held.
func (s *shard[K, V]) evictLocked(k K, e *entry[V], reason EvictReason) {
	delete(s.m, k)
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	s.resize(-1)
	if cb := s.opt.OnEvict; cb != nil {
		cb(k, e.val, reason)
	}
}

// resize applies delta to the cache-wide count and publishes it.
func (s *shard[K, V]) resize(delta int) {
	if delta == 0 {
		return
	}
	s.opt.Metrics.Size(int(s.total.Add(int64(delta))))
}
