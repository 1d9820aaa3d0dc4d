package fastset

import (
	"math/bits"
	"runtime"
)

const (
	// MaxPartitionBits caps the partition count at 256.
	MaxPartitionBits = 8
	// DefaultCapacityBits is the initial log2 bucket count per partition
	// when capacityBits is 0.
	DefaultCapacityBits = 12
	// MinCapacityBits is the smallest initial table (16 buckets).
	MinCapacityBits = 4
	// MaxCapacityBits caps a partition at 2^30 buckets.
	MaxCapacityBits = 30
	// DefaultLoadFactor is the average number of keys per bucket that
	// triggers a doubling of the bucket table.
	DefaultLoadFactor = 3
	// autoPartitionBits is the sentinel for "derive from GOMAXPROCS".
	autoPartitionBits = -1
)

// normalizePartitionBits clamps bits to [0, MaxPartitionBits]. Negative
// values select a partition count tuned to GOMAXPROCS.
func normalizePartitionBits(n int) int {
	if n < 0 {
		return defaultPartitionBits()
	}
	return min(n, MaxPartitionBits)
}

// defaultPartitionBits returns log2 of the smallest power of two that is at
// least max(GOMAXPROCS, 4). This keeps partitions >= workers on small
// machines without over-partitioning large ones.
func defaultPartitionBits() int {
	n := nextPowerOf2(uint64(max(runtime.GOMAXPROCS(0), 4)))
	return min(bits.TrailingZeros64(n), MaxPartitionBits)
}

// normalizeCapacityBits maps 0 to DefaultCapacityBits and clamps everything
// else to [MinCapacityBits, MaxCapacityBits].
func normalizeCapacityBits(n int) int {
	switch {
	case n == 0:
		return DefaultCapacityBits
	case n < MinCapacityBits:
		return MinCapacityBits
	case n > MaxCapacityBits:
		return MaxCapacityBits
	default:
		return n
	}
}

// nextPowerOf2 returns the smallest power of 2 >= n.
func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// nextCursor advances a reverse-binary bucket cursor for a table with the
// given mask. The cursor increments its bit-reversed value, so when the table
// doubles every bucket already visited maps onto buckets that are also
// already visited. Returns 0 once the whole table has been covered.
func nextCursor(v, mask uint64) uint64 {
	v |= ^mask
	v = bits.Reverse64(v)
	v++
	return bits.Reverse64(v)
}
