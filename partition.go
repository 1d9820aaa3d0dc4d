package fastset

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// entry is one stored key with its full hash, kept so growth and cross-set
// merges never rehash.
type entry[K any] struct {
	hash uint64
	key  K
}

// partition is one independently locked hash table holding the keys whose
// hash routes to it. Buckets are small slices; removal swaps the last entry
// of the bucket into the hole.
//
// buckets is nil once the owning set is closed. Every locked method treats a
// nil table as empty and refuses inserts.
type partition[K any] struct {
	mu         sync.RWMutex
	concurrent bool
	index      int
	initBits   int
	loadFactor int

	buckets    [][]entry[K]
	count      atomic.Int64  // read without the lock by Set.Size
	generation atomic.Uint64 // bumped by clear and release
	atCap      bool          // growth already refused once

	codec   Codec[K]
	logger  *Logger
	metrics MetricsCollector
}

func newPartition[K any](index int, codec Codec[K], o *options) *partition[K] {
	return &partition[K]{
		concurrent: o.concurrent,
		index:      index,
		initBits:   o.capacityBits,
		loadFactor: o.loadFactor,
		buckets:    make([][]entry[K], 1<<o.capacityBits),
		codec:      codec,
		logger:     o.logger.WithPartition(index),
		metrics:    o.metrics,
	}
}

func (p *partition[K]) lock() {
	if p.concurrent {
		p.mu.Lock()
	}
}

func (p *partition[K]) unlock() {
	if p.concurrent {
		p.mu.Unlock()
	}
}

func (p *partition[K]) rlock() {
	if p.concurrent {
		p.mu.RLock()
	}
}

func (p *partition[K]) runlock() {
	if p.concurrent {
		p.mu.RUnlock()
	}
}

func (p *partition[K]) bucketFor(h uint64) int {
	return int(h & uint64(len(p.buckets)-1))
}

// findLocked returns the bucket and position of key, or pos -1.
func (p *partition[K]) findLocked(h uint64, key K) (b, pos int) {
	if p.buckets == nil {
		return 0, -1
	}
	b = p.bucketFor(h)
	for i, e := range p.buckets[b] {
		if e.hash == h && p.codec.Equal(e.key, key) {
			return b, i
		}
	}
	return b, -1
}

func (p *partition[K]) containsLocked(h uint64, key K) bool {
	_, pos := p.findLocked(h, key)
	return pos >= 0
}

// insertLocked adds key if absent, cloning it first.
func (p *partition[K]) insertLocked(h uint64, key K) bool {
	b, pos := p.findLocked(h, key)
	if pos >= 0 || p.buckets == nil {
		return false
	}
	p.appendLocked(b, entry[K]{hash: h, key: p.codec.Clone(key)})
	return true
}

// insertEntryLocked adds an entry that is already owned by a set. Stored keys
// are immutable, so sharing them between sets is safe.
func (p *partition[K]) insertEntryLocked(e entry[K]) bool {
	b, pos := p.findLocked(e.hash, e.key)
	if pos >= 0 || p.buckets == nil {
		return false
	}
	p.appendLocked(b, e)
	return true
}

func (p *partition[K]) appendLocked(b int, e entry[K]) {
	p.buckets[b] = append(p.buckets[b], e)
	n := p.count.Add(1)
	if n > int64(p.loadFactor)*int64(len(p.buckets)) {
		p.growLocked(n)
	}
}

func (p *partition[K]) removeLocked(h uint64, key K) bool {
	b, pos := p.findLocked(h, key)
	if pos < 0 {
		return false
	}
	bucket := p.buckets[b]
	last := len(bucket) - 1
	bucket[pos] = bucket[last]
	bucket[last] = entry[K]{}
	p.buckets[b] = bucket[:last]
	p.count.Add(-1)
	return true
}

// growLocked doubles the bucket table, splitting every bucket i into i and
// i+oldLen by the next hash bit. Only this partition is blocked.
func (p *partition[K]) growLocked(count int64) {
	oldLen := len(p.buckets)
	if oldLen >= 1<<MaxCapacityBits {
		if !p.atCap {
			p.atCap = true
			p.logger.LogGrow(count, oldLen, 0)
		}
		return
	}

	newLen := oldLen * 2
	next := make([][]entry[K], newLen)
	bit := uint64(oldLen)
	for i, bucket := range p.buckets {
		var lo, hi []entry[K]
		for _, e := range bucket {
			if e.hash&bit != 0 {
				hi = append(hi, e)
			} else {
				lo = append(lo, e)
			}
		}
		next[i], next[i+oldLen] = lo, hi
	}
	p.buckets = next

	p.logger.LogGrow(count, oldLen, newLen)
	p.metrics.RecordGrow(p.index, newLen)
}

// mergeLocked inserts every entry of src. Both partitions must be locked and
// must belong to sets with the same partition count and codec.
func (p *partition[K]) mergeLocked(src *partition[K]) uint64 {
	var n uint64
	for _, bucket := range src.buckets {
		for _, e := range bucket {
			if p.insertEntryLocked(e) {
				n++
			}
		}
	}
	return n
}

// snapshot copies every entry under the read lock.
func (p *partition[K]) snapshot() []entry[K] {
	p.rlock()
	defer p.runlock()
	out := make([]entry[K], 0, p.count.Load())
	for _, bucket := range p.buckets {
		out = append(out, bucket...)
	}
	return out
}

// scan copies the bucket at cursor into dst and returns the next cursor.
// When start is true the current generation is captured and returned;
// otherwise gen must still match, else the partition was cleared or released
// since the iterator entered it and ok is false.
func (p *partition[K]) scan(cursor, gen uint64, start bool, dst []entry[K]) (out []entry[K], next, curGen uint64, ok bool) {
	p.rlock()
	defer p.runlock()

	curGen = p.generation.Load()
	if p.buckets == nil || (!start && curGen != gen) {
		return dst, 0, curGen, false
	}
	mask := uint64(len(p.buckets) - 1)
	dst = append(dst, p.buckets[cursor&mask]...)
	return dst, nextCursor(cursor, mask), curGen, true
}

// clear empties the partition and shrinks it back to its initial size.
func (p *partition[K]) clear() {
	p.lock()
	defer p.unlock()
	if p.buckets == nil {
		return
	}
	p.buckets = make([][]entry[K], 1<<p.initBits)
	p.count.Store(0)
	p.atCap = false
	p.generation.Add(1)
}

// release drops the table for good.
func (p *partition[K]) release() {
	p.lock()
	defer p.unlock()
	p.buckets = nil
	p.count.Store(0)
	p.generation.Add(1)
}

// PartitionStats describes one partition at a point in time.
type PartitionStats struct {
	Index      int
	Count      int64
	Buckets    int
	Generation uint64
	// LongestBucket is the length of the longest bucket chain.
	LongestBucket int
	// Bytes estimates the memory held by the bucket table and keys.
	Bytes int64
}

func (p *partition[K]) stats() PartitionStats {
	p.rlock()
	defer p.runlock()

	st := PartitionStats{
		Index:      p.index,
		Count:      p.count.Load(),
		Buckets:    len(p.buckets),
		Generation: p.generation.Load(),
	}
	entrySize := int64(unsafe.Sizeof(entry[K]{}))
	st.Bytes = int64(len(p.buckets)) * int64(unsafe.Sizeof([]entry[K]{}))
	for _, bucket := range p.buckets {
		st.LongestBucket = max(st.LongestBucket, len(bucket))
		st.Bytes += int64(cap(bucket)) * entrySize
		for _, e := range bucket {
			st.Bytes += int64(p.codec.Size(e.key))
		}
	}
	return st
}
