package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/gridview/internal/singleflight"
	"github.com/IvanBrykalov/gridview/internal/util"
)

// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
var ErrNoLoader = errors.New("cache: no Loader provided")

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// TTL is the concrete sharded cache returned by New.
// All methods are safe for concurrent use by multiple goroutines.
type TTL[K comparable, V any] struct {
	shards []*shard[K, V]
	total  atomic.Int64
	closed atomic.Bool

	opt Options[K, V]

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]

	// sweeper lifecycle; stop is nil when the sweeper is disabled.
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ Cache[string, int] = (*TTL[string, int])(nil)

// New constructs a cache with the provided Options and starts the
// background sweeper unless SweepInterval is negative.
func New[K comparable, V any](opt Options[K, V]) *TTL[K, V] {
	if opt.DefaultTTL == 0 {
		opt.DefaultTTL = DefaultTTL
	}
	if opt.SweepInterval == 0 {
		opt.SweepInterval = DefaultSweepInterval
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	c := &TTL[K, V]{opt: opt}
	n := util.ShardCount(opt.Shards)
	c.shards = make([]*shard[K, V], n)
	for i := range c.shards {
		c.shards[i] = newShard(opt, &c.total)
	}

	if opt.SweepInterval > 0 {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.sweepLoop(opt.SweepInterval)
	}
	return c
}

// Set inserts or overwrites k→v using DefaultTTL.
func (c *TTL[K, V]) Set(k K, v V) {
	c.SetWithTTL(k, v, c.opt.DefaultTTL)
}

// SetWithTTL inserts or overwrites k→v with a per-key TTL.
// A non-positive ttl disables expiration for this entry.
func (c *TTL[K, V]) SetWithTTL(k K, v V, ttl time.Duration) {
	if c.closed.Load() {
		return
	}
	if ttl < 0 {
		ttl = 0
	}
	c.shardFor(k).Set(k, v, c.now(), int64(ttl))
}

// Get returns the value for k if it is fresh.
func (c *TTL[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.shardFor(k).Get(k, c.now())
}

// Has reports whether a fresh entry exists for k.
func (c *TTL[K, V]) Has(k K) bool {
	_, ok := c.Get(k)
	return ok
}

// Delete removes k and reports whether it was resident.
func (c *TTL[K, V]) Delete(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.shardFor(k).Delete(k)
}

// Clear removes every entry from every shard.
func (c *TTL[K, V]) Clear() {
	if c.closed.Load() {
		return
	}
	for _, s := range c.shards {
		s.Clear()
	}
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *TTL[K, V]) Cleanup() int {
	if c.closed.Load() {
		return 0
	}
	now := c.now()
	n := 0
	for _, s := range c.shards {
		n += s.Sweep(now)
	}
	return n
}

// Len returns the total number of resident entries across all shards.
func (c *TTL[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// Stats returns aggregated counters across shards.
func (c *TTL[K, V]) Stats() Stats {
	st := Stats{Entries: c.Len()}
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
	}
	return st
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// A failed load is not cached.
func (c *TTL[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	v, err, _ := c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err == nil {
			c.Set(k, v)
		}
		return v, err
	})
	return v, err
}

// Close stops the sweeper and marks the cache closed. Safe to call repeatedly.
func (c *TTL[K, V]) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.stop != nil {
			close(c.stop)
			<-c.done
		}
	})
	return nil
}

// ---- helpers ----

func (c *TTL[K, V]) sweepLoop(every time.Duration) {
	defer close(c.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			if n := c.Cleanup(); n > 0 {
				c.opt.Logger.Debug("cache sweep", slog.Int("evicted", n), slog.Int("resident", c.Len()))
			}
		}
	}
}

// shardFor picks a shard by hashing the key; len(c.shards) is a power of two.
func (c *TTL[K, V]) shardFor(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(util.KeyHash(k), len(c.shards))]
}

func (c *TTL[K, V]) now() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}
