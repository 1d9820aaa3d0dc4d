// Package handle maps opaque 64-bit handles to live objects.
//
// A handle packs a slot index (low 32 bits, stored +1 so that 0 is never a
// valid handle) and the slot's generation (high 32 bits). Every insert into a
// slot bumps its generation, so a stale handle to a recycled slot never
// resolves to the new occupant.
package handle

import (
	"fmt"
	"sync"
)

// Handle identifies one live object in a Table. The zero Handle is never
// valid.
type Handle uint64

// Nil is the reserved "no object" handle.
const Nil Handle = 0

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) split() (index, gen uint32, ok bool) {
	lo := uint32(h)
	if lo == 0 {
		return 0, 0, false
	}
	return lo - 1, uint32(h >> 32), true
}

func (h Handle) String() string {
	index, gen, ok := h.split()
	if !ok {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle(%d:%d)", index, gen)
}

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// Table is a concurrent handle table. The zero value is ready to use.
type Table[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
	live  int
}

// New returns an empty table.
func New[T any]() *Table[T] {
	return &Table[T]{}
}

// Insert stores v and returns its handle.
func (t *Table[T]) Insert(v T) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		index = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{})
	}

	s := &t.slots[index]
	s.gen++
	s.live = true
	s.val = v
	t.live++
	return makeHandle(index, s.gen)
}

// lookupLocked returns the slot for h if it is live and current.
func (t *Table[T]) lookupLocked(h Handle) *slot[T] {
	index, gen, ok := h.split()
	if !ok || int(index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[index]
	if !s.live || s.gen != gen {
		return nil
	}
	return s
}

// Get returns the object for h. ok is false for Nil, unknown and removed
// handles.
func (t *Table[T]) Get(h Handle) (v T, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s := t.lookupLocked(h); s != nil {
		return s.val, true
	}
	return v, false
}

// Remove deletes h and returns the object it referred to. Removing a handle
// that is not live is a no-op returning ok false.
func (t *Table[T]) Remove(h Handle) (v T, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.lookupLocked(h)
	if s == nil {
		return v, false
	}
	v = s.val
	var zero T
	s.val = zero
	s.live = false
	index, _, _ := h.split()
	t.free = append(t.free, index)
	t.live--
	return v, true
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Handles returns every live handle.
func (t *Table[T]) Handles() []Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Handle, 0, t.live)
	for i := range t.slots {
		if s := &t.slots[i]; s.live {
			out = append(out, makeHandle(uint32(i), s.gen))
		}
	}
	return out
}
