package fastset

import "errors"

var (
	// ErrInvalidHandle is returned when an operation is given a zero,
	// unknown or already disposed handle.
	ErrInvalidHandle = errors.New("fastset: invalid handle")

	// ErrWrongHandleKind is returned when a set handle is passed where an
	// iterator handle is expected, or the other way around.
	ErrWrongHandleKind = errors.New("fastset: wrong handle kind")

	// ErrExhausted is returned by Next when the iterator has no remaining keys.
	ErrExhausted = errors.New("fastset: iterator exhausted")

	// ErrClosed is returned by Next when the iterator or its set was closed.
	ErrClosed = errors.New("fastset: closed")

	// ErrForeignIterator is returned by Erase when the iterator was created
	// from a different set.
	ErrForeignIterator = errors.New("fastset: iterator belongs to another set")

	// ErrUnsupported is returned by set algebra that the set deliberately
	// does not implement.
	ErrUnsupported = errors.New("fastset: unsupported operation")
)
