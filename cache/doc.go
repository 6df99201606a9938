// Package cache provides a generic, sharded in-memory key/value store with
// per-entry expiration, a background sweeper, and singleflight loading.
//
// Design
//
//   - Concurrency: entries are split across shards, each protected by an
//     RWMutex. The shard count is a power of two chosen from GOMAXPROCS
//     unless Options.Shards is set.
//
//   - Expiration: every entry records its insertion time and TTL. An entry
//     is logically absent once now - insertedAt > ttl. Get and Has evict
//     such entries lazily; Cleanup sweeps all of them.
//
//   - Sweeper: New starts a goroutine that calls Cleanup every
//     Options.SweepInterval (5 minutes by default) so keys that are never
//     read again do not accumulate. Close stops it; the cache is a scoped
//     resource and hosts should Close it at shutdown.
//
//   - GetOrLoad: coalesces concurrent loads for the same key. Successful
//     loads are stored with DefaultTTL; failures are not cached.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     NoopMetrics is the default; metrics/prom exports them to Prometheus.
//
// Basic usage
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{})
//	defer c.Close()
//	c.Set("a", []byte("1"))             // expires after 20 minutes
//	c.SetWithTTL("tmp", nil, time.Second)
//	if v, ok := c.Get("a"); ok {
//	    _ = v
//	}
//
// With GetOrLoad
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        return fetch(ctx, k)
//	    },
//	})
//	v, err := c.GetOrLoad(ctx, "key")
package cache
