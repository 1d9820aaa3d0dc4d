package fastset

import "sync/atomic"

// MetricsCollector receives operational events from a Set. Implementations
// must be safe for concurrent use; calls happen while partition locks may be
// held, so they must not call back into the set.
//
// See package prommetrics for a Prometheus implementation.
type MetricsCollector interface {
	// RecordGrow is called after a partition doubles its bucket table.
	RecordGrow(partition, buckets int)

	// RecordAddExclusive is called after each AddExclusive against another
	// set. inserted is false when the key was claimed by the other set or
	// already present.
	RecordAddExclusive(inserted bool)

	// RecordErase is called after each Erase with the number of keys removed.
	RecordErase(n int)

	// RecordClear is called after each Clear.
	RecordClear()
}

// NoopMetricsCollector discards all events.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGrow(int, int)     {}
func (NoopMetricsCollector) RecordAddExclusive(bool) {}
func (NoopMetricsCollector) RecordErase(int)         {}
func (NoopMetricsCollector) RecordClear()            {}

// BasicMetricsCollector counts events in memory.
type BasicMetricsCollector struct {
	Grows             atomic.Int64
	ExclusiveInserted atomic.Int64
	ExclusiveRejected atomic.Int64
	Erased            atomic.Int64
	Clears            atomic.Int64
}

// RecordGrow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGrow(int, int) {
	b.Grows.Add(1)
}

// RecordAddExclusive implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAddExclusive(inserted bool) {
	if inserted {
		b.ExclusiveInserted.Add(1)
	} else {
		b.ExclusiveRejected.Add(1)
	}
}

// RecordErase implements MetricsCollector.
func (b *BasicMetricsCollector) RecordErase(n int) {
	b.Erased.Add(int64(n))
}

// RecordClear implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClear() {
	b.Clears.Add(1)
}
