package fastset

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// lockPair write-locks dst and read-locks src, ordered by (set id, partition
// index), and returns the matching unlock. Every cross-set operation goes
// through here, so two sets merged in opposite directions cannot deadlock.
func lockPair[K any](dst *partition[K], dstSet uint64, src *partition[K], srcSet uint64) func() {
	if dst == src {
		dst.lock()
		return dst.unlock
	}
	if dstSet < srcSet || (dstSet == srcSet && dst.index < src.index) {
		dst.lock()
		src.rlock()
	} else {
		src.rlock()
		dst.lock()
	}
	return func() {
		src.runlock()
		dst.unlock()
	}
}

// AddAll inserts every key of source and returns how many were actually
// added. Merging a set into itself is a no-op returning 0.
//
// When both sets have the same partition count, partitions are merged
// pairwise in parallel, each pair holding both partition locks. Otherwise
// each source partition is copied under its read lock and re-inserted, so
// at most one lock is held at a time. Keys added to source during the call
// may or may not be merged.
func (s *Set[K]) AddAll(source *Set[K]) uint64 {
	if source == nil || source == s || s.closed.Load() || source.closed.Load() {
		return 0
	}
	if len(s.partitions) == len(source.partitions) {
		return s.addAllPaired(source)
	}
	return s.addAllRehash(source)
}

func (s *Set[K]) addAllPaired(source *Set[K]) uint64 {
	var added atomic.Uint64
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, dst := range s.partitions {
		src := source.partitions[i]
		g.Go(func() error {
			unlock := lockPair(dst, s.id, src, source.id)
			n := dst.mergeLocked(src)
			unlock()
			added.Add(n)
			return nil
		})
	}
	_ = g.Wait()
	return added.Load()
}

func (s *Set[K]) addAllRehash(source *Set[K]) uint64 {
	var added uint64
	for _, src := range source.partitions {
		for _, e := range src.snapshot() {
			p := s.partitionFor(e.hash)
			p.lock()
			if p.insertEntryLocked(e) {
				added++
			}
			p.unlock()
		}
	}
	return added
}

// AddExclusive inserts key only if it is absent from other, and reports
// whether it was inserted. The check and the insert are atomic with respect
// to every other operation on key in either set: the key's partition in s is
// write-locked and its partition in other is read-locked for the duration.
//
// When two goroutines race AddExclusive(k, b) on a and AddExclusive(k, a) on
// b, exactly one of a and b ends up holding k. A nil or closed other behaves
// as an empty set; other == s behaves as Add.
func (s *Set[K]) AddExclusive(key K, other *Set[K]) bool {
	if s.closed.Load() {
		return false
	}
	if other == nil || other == s {
		return s.Add(key)
	}

	h := s.codec.Hash(key)
	dst := s.partitionFor(h)
	src := other.partitionFor(h)

	unlock := lockPair(dst, s.id, src, other.id)
	inserted := !src.containsLocked(h, key) && dst.insertLocked(h, key)
	unlock()

	s.metrics.RecordAddExclusive(inserted)
	return inserted
}

// RemoveAll would remove every key of other. Set difference is not
// supported; it always returns ErrUnsupported.
func (s *Set[K]) RemoveAll(other *Set[K]) (uint64, error) {
	return 0, fmt.Errorf("%w: RemoveAll", ErrUnsupported)
}

// RetainAll would keep only the keys also in other. Set intersection is not
// supported; it always returns ErrUnsupported.
func (s *Set[K]) RetainAll(other *Set[K]) (uint64, error) {
	return 0, fmt.Errorf("%w: RetainAll", ErrUnsupported)
}
