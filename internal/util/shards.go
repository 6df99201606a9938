package util

import "runtime"

// NextPow2 returns the smallest power of two >= x (1 for x <= 1).
// The result is clamped to 1<<63 when the next power would overflow.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	if x == 0 {
		return 1 << 63
	}
	return x
}

// ShardCount normalizes a requested shard count to a power of two in [1..256].
// A non-positive request picks nextPow2(2*GOMAXPROCS).
func ShardCount(requested int) int {
	n := requested
	if n <= 0 {
		n = 2 * runtime.GOMAXPROCS(0)
	}
	n = int(NextPow2(uint64(n)))
	if n > 256 {
		n = 256
	}
	return n
}

// ShardIndex maps a hash onto [0, shards). shards must be a power of two.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	return int(hash & uint64(shards-1))
}
