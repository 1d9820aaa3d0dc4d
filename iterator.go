package fastset

// Iterator walks a Set partition by partition. It is not a snapshot:
//
//   - no key is ever yielded twice, whatever happens to the set concurrently;
//   - a key present for the whole lifetime of the iterator is yielded once;
//   - keys added or removed during iteration may or may not be yielded.
//
// Within a partition buckets are visited with a reverse-binary cursor, so a
// partition that doubles its table mid-iteration does not cause repeats or
// misses. Each bucket is copied whole under the partition's read lock. If a
// partition is cleared while the iterator is inside it, the rest of that
// partition is skipped.
//
// An Iterator must only be used by one goroutine at a time. The set it came
// from may be mutated concurrently.
type Iterator[K any] struct {
	set     *Set[K]
	part    int
	cursor  uint64
	gen     uint64
	entered bool
	buf     []entry[K]
	pos     int
	closed  bool
}

// HasNext reports whether Next would return a key. It does not advance the
// iterator and may be called repeatedly.
func (it *Iterator[K]) HasNext() bool {
	return it.fill()
}

// Next returns the next key. It returns ErrExhausted when the set has no
// more keys and ErrClosed when the iterator or its set was closed.
//
// Byte keys are returned as copies and may be modified freely.
func (it *Iterator[K]) Next() (K, error) {
	e, err := it.nextEntry()
	if err != nil {
		var zero K
		return zero, err
	}
	return it.set.codec.Clone(e.key), nil
}

// Close releases the iterator's buffer. Further calls to Next return
// ErrClosed. Close is idempotent.
func (it *Iterator[K]) Close() {
	it.closed = true
	it.buf = nil
	it.pos = 0
}

func (it *Iterator[K]) nextEntry() (entry[K], error) {
	if it.closed || it.set.closed.Load() {
		return entry[K]{}, ErrClosed
	}
	if !it.fill() {
		return entry[K]{}, ErrExhausted
	}
	e := it.buf[it.pos]
	it.buf[it.pos] = entry[K]{}
	it.pos++
	return e, nil
}

// fill makes sure buf has an unread entry, pulling buckets until one is
// non-empty or the set is exhausted.
func (it *Iterator[K]) fill() bool {
	for it.pos >= len(it.buf) {
		if it.closed || it.set.closed.Load() || it.part >= len(it.set.partitions) {
			return false
		}
		p := it.set.partitions[it.part]
		buf, next, gen, ok := p.scan(it.cursor, it.gen, !it.entered, it.buf[:0])
		it.buf, it.pos = buf, 0
		if !ok {
			it.buf = it.buf[:0]
		}
		if !ok || next == 0 {
			it.part++
			it.cursor, it.entered = 0, false
			continue
		}
		it.cursor, it.gen, it.entered = next, gen, true
	}
	return true
}
