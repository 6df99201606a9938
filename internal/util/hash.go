// Package util contains internal helpers for shard selection.
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import "fmt"

const (
	fnvOffset64 = 1469598103934665603
	fnvPrime64  = 1099511628211
)

// KeyHash hashes a cache key with 64-bit FNV-1a.
//
// Strings and integer kinds are hashed directly. Composite keys (for example
// page coordinates) must implement fmt.Stringer; their String() form is
// hashed, so two keys that compare equal must render equally.
func KeyHash[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return fnvString(v)
	case int:
		return fnvUint64(uint64(v))
	case int32:
		return fnvUint64(uint64(uint32(v)))
	case int64:
		return fnvUint64(uint64(v))
	case uint:
		return fnvUint64(uint64(v))
	case uint32:
		return fnvUint64(uint64(v))
	case uint64:
		return fnvUint64(v)
	case fmt.Stringer:
		return fnvString(v.String())
	default:
		// Fall back to the printed form rather than panicking: shard choice
		// only affects contention, never correctness.
		return fnvString(fmt.Sprintf("%#v", k))
	}
}

func fnvString(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}

func fnvUint64(u uint64) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < 8; i++ {
		h ^= uint64(byte(u))
		h *= fnvPrime64
		u >>= 8
	}
	return h
}
