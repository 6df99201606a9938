package cache

// entry is the resident form of a cached value.
type entry[V any] struct {
	val V

	// insertedAt is the UnixNano time of the last Set for this key.
	insertedAt int64

	// ttl in nanoseconds; zero means the entry never expires.
	ttl int64
}

// expired reports whether now - insertedAt > ttl.
func (e *entry[V]) expired(now int64) bool {
	if e.ttl <= 0 {
		return false
	}
	return now-e.insertedAt > e.ttl
}
