// Package fastset provides high-throughput concurrent hash sets for Go.
//
// A set holds either 64-bit integers ([Int64Set]) or byte sequences
// ([BytesSet]) and is built for deduplication in parallel workloads, such as
// tracking visited vertices while many goroutines expand a graph frontier.
//
// # Architecture
//
// Partitioning: every set is split into 2^partitionBits independent
// partitions, each a hash table with its own lock. A key is routed to one
// partition by bits 32-39 of its xxh3 hash, so operations on different
// partitions never synchronize and throughput scales with the number of
// goroutines. The price is that [Set.Size] is only approximate while the set
// is being mutated.
//
// Bucketed tables: each partition starts with 2^capacityBits buckets and
// doubles when the average bucket holds more than [DefaultLoadFactor] keys.
// Growth splits every bucket in two by the next hash bit and blocks only the
// partition being grown.
//
// # Cross-set operations
//
// [Set.AddAll] merges one set into another. [Set.AddExclusive] inserts a key
// only if another set does not hold it, atomically: the key's partition is
// locked in both sets, so two goroutines racing to claim the same key in two
// sets never both win. Locks that span sets are always taken in
// (set id, partition index) order, which rules out deadlock between sets
// merged in opposite directions.
//
//	visited := fastset.NewInt64Set()
//	next := fastset.NewInt64Set()
//	for _, v := range neighbors {
//		if next.AddExclusive(v, visited) {
//			// v is new work for exactly one goroutine
//		}
//	}
//
// # Iteration
//
// [Set.Iterator] and [Set.All] are weakly consistent. They never yield a key
// twice and never fail because of concurrent mutation; keys present for the
// whole traversal are always yielded, keys added or removed meanwhile may or
// may not be. Buckets are walked with a reverse-binary cursor so tables that
// double during iteration are handled without repeats.
//
// [Set.Erase] removes a batch of keys at the iterator's position, which lets
// a consumer drain a set in bounded steps while producers keep adding to it.
//
// # Handles
//
// [Engine] owns sets and iterators behind opaque [Handle] values with
// explicit, idempotent disposal. Every call validates its handles; a stale
// or zero handle returns [ErrInvalidHandle] instead of touching freed state.
//
// # Thread Safety
//
// Sets are safe for concurrent use unless created with
// [WithConcurrent](false), which removes all locking for single-goroutine
// use. An [Iterator] must be used by one goroutine at a time.
//
// A closed set fails safely. It behaves as an empty set that refuses
// inserts, and its iterators report [ErrClosed].
//
// # Performance Tips
//
//   - Use at least as many partitions as writer goroutines (the default
//     derives the count from GOMAXPROCS)
//   - Size capacityBits for the expected keys per partition to avoid early
//     growth: expected / partitions / DefaultLoadFactor buckets
//   - Prefer [Set.AddAll] between sets with equal partition counts; it merges
//     partition pairs in parallel without rehashing
package fastset
