package cache

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultTTL is applied by New when Options.DefaultTTL is zero.
	DefaultTTL = 20 * time.Minute
	// DefaultSweepInterval is applied by New when Options.SweepInterval is zero.
	DefaultSweepInterval = 5 * time.Minute
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictTTL: expired entry found on access (lazy eviction).
	EvictTTL EvictReason = iota
	// EvictSweep: expired entry removed by Cleanup.
	EvictSweep
)

func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictSweep:
		return "sweep"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures the cache behavior. Zero values are safe;
// defaults are applied in New():
//   - DefaultTTL == 0     => 20 minutes (negative => entries never expire)
//   - SweepInterval == 0  => 5 minutes (negative => no background sweeper)
//   - Shards <= 0         => auto (rounded up to power of two)
//   - nil Metrics         => NoopMetrics
//   - nil Logger          => slog.Default()
type Options[K comparable, V any] struct {
	// DefaultTTL applies to Set and to values stored by GetOrLoad.
	DefaultTTL time.Duration

	// SweepInterval is the period of the background Cleanup.
	SweepInterval time.Duration

	// Shards defines the number of shards. If 0, an automatic value is chosen
	// (≈ 2*GOMAXPROCS) and rounded to the next power of two.
	Shards int

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for expired entries under the shard lock; keep it lightweight.
	// Explicit Delete and Clear do not trigger it.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics
	Logger  *slog.Logger

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock
}
