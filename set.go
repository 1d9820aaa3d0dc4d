package fastset

import (
	"iter"
	"sync/atomic"
)

// setIDs hands out process-unique set ids, which order lock acquisition
// across sets.
var setIDs atomic.Uint64

// Set is a concurrent hash set split into 2^partitionBits independently
// locked partitions. Every key lives in exactly one partition, chosen by its
// hash; the assignment never changes.
//
// A Set created with WithConcurrent(true) (the default) is safe for
// concurrent use. After Close the set behaves as an empty set that refuses
// inserts.
type Set[K any] struct {
	id         uint64
	codec      Codec[K]
	partitions []*partition[K]
	partMask   uint64
	capBits    int
	concurrent bool
	closed     atomic.Bool
	logger     *Logger
	metrics    MetricsCollector
}

// Int64Set is a set of 64-bit integers.
type Int64Set = Set[int64]

// BytesSet is a set of byte sequences.
type BytesSet = Set[[]byte]

// NewSet creates a set for keys handled by codec.
func NewSet[K any](codec Codec[K], opts ...Option) *Set[K] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.finish()

	id := setIDs.Add(1)
	o.logger = o.logger.WithSet(id)

	n := 1 << o.partitionBits
	partitions := make([]*partition[K], n)
	for i := range partitions {
		partitions[i] = newPartition(i, codec, &o)
	}

	return &Set[K]{
		id:         id,
		codec:      codec,
		partitions: partitions,
		partMask:   uint64(n - 1),
		capBits:    o.capacityBits,
		concurrent: o.concurrent,
		logger:     o.logger,
		metrics:    o.metrics,
	}
}

// NewInt64Set creates a set of 64-bit integers.
func NewInt64Set(opts ...Option) *Int64Set {
	return NewSet[int64](Int64Codec{}, opts...)
}

// NewBytesSet creates a set of byte sequences. Keys are copied on insertion.
func NewBytesSet(opts ...Option) *BytesSet {
	return NewSet[[]byte](BytesCodec{}, opts...)
}

func (s *Set[K]) partitionFor(h uint64) *partition[K] {
	return s.partitions[partitionIndex(h, s.partMask)]
}

// Add inserts key if absent and reports whether the set changed.
func (s *Set[K]) Add(key K) bool {
	if s.closed.Load() {
		return false
	}
	h := s.codec.Hash(key)
	p := s.partitionFor(h)
	p.lock()
	added := p.insertLocked(h, key)
	p.unlock()
	return added
}

// Remove deletes key if present and reports whether it was removed.
func (s *Set[K]) Remove(key K) bool {
	if s.closed.Load() {
		return false
	}
	return s.removeHashed(s.codec.Hash(key), key)
}

func (s *Set[K]) removeHashed(h uint64, key K) bool {
	p := s.partitionFor(h)
	p.lock()
	removed := p.removeLocked(h, key)
	p.unlock()
	return removed
}

// Contains reports whether key is in the set. It may run concurrently with
// mutations of the same partition; a key being inserted concurrently may or
// may not be observed.
func (s *Set[K]) Contains(key K) bool {
	if s.closed.Load() {
		return false
	}
	h := s.codec.Hash(key)
	p := s.partitionFor(h)
	p.rlock()
	found := p.containsLocked(h, key)
	p.runlock()
	return found
}

// Size returns the number of keys. Partition counts are summed without a
// global lock, so under concurrent mutation the result is approximate.
func (s *Set[K]) Size() uint64 {
	if s.closed.Load() {
		return 0
	}
	var total int64
	for _, p := range s.partitions {
		total += p.count.Load()
	}
	return uint64(max(total, 0))
}

// Clear removes every key and shrinks each partition back to its initial
// table size. Iterators positioned in a cleared partition skip the rest of it.
func (s *Set[K]) Clear() {
	if s.closed.Load() {
		return
	}
	for _, p := range s.partitions {
		p.clear()
	}
	s.metrics.RecordClear()
}

// Close releases all partitions. It is idempotent and always returns nil.
func (s *Set[K]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, p := range s.partitions {
		p.release()
	}
	s.logger.Debug("set closed")
	return nil
}

// Closed reports whether Close has been called.
func (s *Set[K]) Closed() bool {
	return s.closed.Load()
}

// ID returns the process-unique id of the set.
func (s *Set[K]) ID() uint64 {
	return s.id
}

// PartitionCount returns the number of partitions.
func (s *Set[K]) PartitionCount() int {
	return len(s.partitions)
}

// CapacityBits returns log2 of the initial bucket count per partition after
// defaults and clamping were applied.
func (s *Set[K]) CapacityBits() int {
	return s.capBits
}

// Concurrent reports whether the set uses per-partition locking.
func (s *Set[K]) Concurrent() bool {
	return s.concurrent
}

// Stats returns a snapshot of every partition. Each partition is read under
// its own lock; the snapshot as a whole is not atomic.
func (s *Set[K]) Stats() []PartitionStats {
	out := make([]PartitionStats, len(s.partitions))
	for i, p := range s.partitions {
		out[i] = p.stats()
	}
	return out
}

// MemoryUsage estimates the bytes held by the set.
func (s *Set[K]) MemoryUsage() int64 {
	var total int64
	for _, st := range s.Stats() {
		total += st.Bytes
	}
	return total
}

// Iterator returns a weakly consistent cursor over the set. See Iterator.
func (s *Set[K]) Iterator() *Iterator[K] {
	return &Iterator[K]{set: s}
}

// All returns an iterator over the keys of the set with the same guarantees
// as Iterator.
func (s *Set[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		it := s.Iterator()
		defer it.Close()
		for {
			k, err := it.Next()
			if err != nil || !yield(k) {
				return
			}
		}
	}
}

// Erase removes up to count keys starting at the iterator's position,
// advancing the iterator past them, and returns how many were removed. Keys
// that were already removed concurrently are skipped and not counted. Returns
// 0 if it was created from a different set.
func (s *Set[K]) Erase(it *Iterator[K], count int) int {
	if it == nil || it.set != s || count <= 0 {
		return 0
	}
	n := 0
	for n < count {
		e, err := it.nextEntry()
		if err != nil {
			break
		}
		if s.removeHashed(e.hash, e.key) {
			n++
		}
	}
	s.metrics.RecordErase(n)
	return n
}
