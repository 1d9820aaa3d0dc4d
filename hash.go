package fastset

import (
	"bytes"
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Codec defines how a key type is hashed, compared and stored.
//
// Two sets may only be combined (AddAll, AddExclusive) when they use the
// same codec, since partition routing is derived from Hash.
type Codec[K any] interface {
	// Hash returns the 64-bit hash of k. Bits 32-39 select the partition and
	// the low bits select the bucket within it.
	Hash(k K) uint64
	// Equal reports whether a and b are the same key.
	Equal(a, b K) bool
	// Clone returns a copy of k that does not alias caller memory.
	Clone(k K) K
	// Size returns the number of bytes k references outside its own value,
	// for memory estimates.
	Size(k K) int
}

// Int64Codec is the codec for 64-bit integer keys.
type Int64Codec struct{}

// Hash hashes the little-endian encoding of k with xxh3.
func (Int64Codec) Hash(k int64) uint64 {
	return hashUint64(uint64(k))
}

// Equal compares by value.
func (Int64Codec) Equal(a, b int64) bool { return a == b }

// Clone returns k unchanged.
func (Int64Codec) Clone(k int64) int64 { return k }

// Size returns 0; integer keys are stored inline.
func (Int64Codec) Size(int64) int { return 0 }

// BytesCodec is the codec for variable-length byte keys. Keys are copied on
// insertion and compared by exact byte equality; a nil key and an empty key
// are the same key.
type BytesCodec struct{}

// Hash returns the xxh3 hash of k.
func (BytesCodec) Hash(k []byte) uint64 {
	return xxh3.Hash(k)
}

// Equal reports whether a and b hold the same bytes.
func (BytesCodec) Equal(a, b []byte) bool { return bytes.Equal(a, b) }

// Clone copies k into a fresh allocation.
func (BytesCodec) Clone(k []byte) []byte {
	out := make([]byte, len(k))
	copy(out, k)
	return out
}

// Size returns len(k).
func (BytesCodec) Size(k []byte) int { return len(k) }

// hashUint64 hashes v without allocating.
func hashUint64(v uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return xxh3.Hash(buf[:])
}

// partitionIndex extracts the partition index from a hash value.
// Uses bits 32-39, which never overlap the bucket bits (0-29).
func partitionIndex(h uint64, mask uint64) int {
	return int((h >> 32) & mask)
}
