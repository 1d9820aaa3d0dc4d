package fastset

import (
	"fmt"
	"slices"
	"sync"

	"github.com/jcalabro/fastset/internal/handle"
)

// Handle is an opaque reference to a set or iterator owned by an Engine.
// The zero Handle never refers to anything.
type Handle = handle.Handle

// NilHandle is the reserved "no object" handle.
const NilHandle = handle.Nil

type iterEntry[K any] struct {
	it    *Iterator[K]
	owner Handle
}

// Engine owns sets and iterators and hands out opaque handles to them, for
// callers that cannot hold Go pointers (foreign function boundaries, handle
// tables in other runtimes) or that want explicit lifetimes.
//
// Every method checks its handles: a Nil, unknown or disposed handle yields a
// zero result and an error wrapping ErrInvalidHandle; it never panics.
// Dispose is idempotent. Disposing a set also disposes every iterator handle
// created from it.
type Engine[K any] struct {
	codec  Codec[K]
	opts   []Option
	logger *Logger
	table  handle.Table[any]

	mu       sync.Mutex // serializes Iterator against Dispose
	children map[Handle]map[Handle]struct{}
}

// NewEngine creates an engine whose sets use codec. opts are applied to
// every set before the per-call parameters of Create.
func NewEngine[K any](codec Codec[K], opts ...Option) *Engine[K] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.finish()
	return &Engine[K]{
		codec:    codec,
		opts:     slices.Clip(opts),
		logger:   o.logger,
		children: make(map[Handle]map[Handle]struct{}),
	}
}

// NewInt64Engine creates an engine for 64-bit integer sets.
func NewInt64Engine(opts ...Option) *Engine[int64] {
	return NewEngine[int64](Int64Codec{}, opts...)
}

// NewBytesEngine creates an engine for byte sequence sets.
func NewBytesEngine(opts ...Option) *Engine[[]byte] {
	return NewEngine[[]byte](BytesCodec{}, opts...)
}

// Create makes a new set with 2^partitionBits partitions and an initial
// 2^capacityBits buckets per partition (0 selects the default), and returns
// its handle.
func (e *Engine[K]) Create(partitionBits, capacityBits uint8, concurrent bool) Handle {
	opts := append(e.opts,
		WithPartitionBits(int(partitionBits)),
		WithCapacityBits(int(capacityBits)),
		WithConcurrent(concurrent),
	)
	s := NewSet(e.codec, opts...)
	h := e.table.Insert(s)
	e.logger.Debug("set created",
		"handle", h,
		"set", s.ID(),
		"partitions", s.PartitionCount(),
		"concurrent", concurrent,
	)
	return h
}

// Set resolves a set handle.
func (e *Engine[K]) Set(h Handle) (*Set[K], error) {
	v, ok := e.table.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	s, ok := v.(*Set[K])
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a set", ErrWrongHandleKind, h)
	}
	return s, nil
}

func (e *Engine[K]) iterator(h Handle) (*iterEntry[K], error) {
	v, ok := e.table.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, h)
	}
	ie, ok := v.(*iterEntry[K])
	if !ok {
		return nil, fmt.Errorf("%w: %v is not an iterator", ErrWrongHandleKind, h)
	}
	return ie, nil
}

// Add inserts key into the set h.
func (e *Engine[K]) Add(h Handle, key K) (bool, error) {
	s, err := e.Set(h)
	if err != nil {
		return false, err
	}
	return s.Add(key), nil
}

// Remove deletes key from the set h.
func (e *Engine[K]) Remove(h Handle, key K) (bool, error) {
	s, err := e.Set(h)
	if err != nil {
		return false, err
	}
	return s.Remove(key), nil
}

// Contains reports whether key is in the set h.
func (e *Engine[K]) Contains(h Handle, key K) (bool, error) {
	s, err := e.Set(h)
	if err != nil {
		return false, err
	}
	return s.Contains(key), nil
}

// Size returns the approximate size of the set h.
func (e *Engine[K]) Size(h Handle) (uint64, error) {
	s, err := e.Set(h)
	if err != nil {
		return 0, err
	}
	return s.Size(), nil
}

// Clear empties the set h.
func (e *Engine[K]) Clear(h Handle) error {
	s, err := e.Set(h)
	if err != nil {
		return err
	}
	s.Clear()
	return nil
}

// AddAll merges the set other into the set h and returns how many keys
// were added.
func (e *Engine[K]) AddAll(h, other Handle) (uint64, error) {
	s, err := e.Set(h)
	if err != nil {
		return 0, err
	}
	src, err := e.Set(other)
	if err != nil {
		return 0, err
	}
	return s.AddAll(src), nil
}

// AddExclusive inserts key into the set h only if it is absent from the
// set other. See Set.AddExclusive.
func (e *Engine[K]) AddExclusive(h Handle, key K, other Handle) (bool, error) {
	s, err := e.Set(h)
	if err != nil {
		return false, err
	}
	o, err := e.Set(other)
	if err != nil {
		return false, err
	}
	return s.AddExclusive(key, o), nil
}

// Iterator creates an iterator over the set h and returns its handle.
func (e *Engine[K]) Iterator(h Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.Set(h)
	if err != nil {
		return NilHandle, err
	}
	ih := e.table.Insert(&iterEntry[K]{it: s.Iterator(), owner: h})
	kids := e.children[h]
	if kids == nil {
		kids = make(map[Handle]struct{})
		e.children[h] = kids
	}
	kids[ih] = struct{}{}
	return ih, nil
}

// HasNext reports whether the iterator it has more keys.
func (e *Engine[K]) HasNext(it Handle) (bool, error) {
	ie, err := e.iterator(it)
	if err != nil {
		return false, err
	}
	return ie.it.HasNext(), nil
}

// Next returns the next key of the iterator it, or an error wrapping
// ErrExhausted once it is drained.
func (e *Engine[K]) Next(it Handle) (K, error) {
	ie, err := e.iterator(it)
	if err != nil {
		var zero K
		return zero, err
	}
	return ie.it.Next()
}

// Erase removes up to count keys from the set h starting at the position of
// the iterator it, and returns how many were removed.
func (e *Engine[K]) Erase(h, it Handle, count int32) (int32, error) {
	s, err := e.Set(h)
	if err != nil {
		return 0, err
	}
	ie, err := e.iterator(it)
	if err != nil {
		return 0, err
	}
	if ie.it.set != s {
		return 0, fmt.Errorf("%w: %v was not created from %v", ErrForeignIterator, it, h)
	}
	return int32(s.Erase(ie.it, int(count))), nil
}

// Dispose releases the set or iterator h. Disposing Nil or an already
// disposed handle does nothing.
func (e *Engine[K]) Dispose(h Handle) {
	e.mu.Lock()
	v, ok := e.table.Remove(h)
	if !ok {
		e.mu.Unlock()
		return
	}

	var closing *Set[K]
	switch obj := v.(type) {
	case *Set[K]:
		for kid := range e.children[h] {
			e.table.Remove(kid)
		}
		delete(e.children, h)
		closing = obj
	case *iterEntry[K]:
		delete(e.children[obj.owner], h)
		obj.it.Close()
	}
	e.mu.Unlock()

	// Iterators still held by other goroutines observe the closed set and
	// report ErrClosed; they are never closed from here.
	if closing != nil {
		_ = closing.Close()
	}
	e.logger.Debug("handle disposed", "handle", h)
}

// Len returns the number of live set and iterator handles.
func (e *Engine[K]) Len() int {
	return e.table.Len()
}

// Close disposes every handle.
func (e *Engine[K]) Close() error {
	for _, h := range e.table.Handles() {
		e.Dispose(h)
	}
	return nil
}
