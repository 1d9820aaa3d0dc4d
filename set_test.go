package fastset

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestInt64SetBasic(t *testing.T) {
	s := NewInt64Set(WithPartitionBits(2), WithCapacityBits(4))

	assert.True(t, s.Add(1))
	assert.True(t, s.Add(-1))
	assert.True(t, s.Add(0))
	assert.False(t, s.Add(1), "duplicate add must not change the set")

	assert.True(t, s.Contains(1))
	assert.True(t, s.Contains(-1))
	assert.True(t, s.Contains(0))
	assert.False(t, s.Contains(2))
	assert.Equal(t, uint64(3), s.Size())

	assert.True(t, s.Remove(1))
	assert.False(t, s.Remove(1))
	assert.False(t, s.Contains(1))
	assert.Equal(t, uint64(2), s.Size())
}

func TestBytesSetBasic(t *testing.T) {
	s := NewBytesSet(WithPartitionBits(3))

	assert.True(t, s.Add([]byte("hello")))
	assert.True(t, s.Add([]byte("world")))
	assert.True(t, s.Add([]byte{}))
	assert.False(t, s.Add([]byte("hello")))
	assert.False(t, s.Add(nil), "nil and empty keys are the same key")

	assert.True(t, s.Contains([]byte("hello")))
	assert.False(t, s.Contains([]byte("hell")))
	assert.Equal(t, uint64(3), s.Size())
}

func TestBytesSetCopiesKeys(t *testing.T) {
	s := NewBytesSet()
	buf := []byte("abc")
	require.True(t, s.Add(buf))

	buf[0] = 'x'
	assert.True(t, s.Contains([]byte("abc")), "stored key must not alias caller memory")
	assert.False(t, s.Contains([]byte("xbc")))
}

func TestSetParameters(t *testing.T) {
	s := NewInt64Set(WithPartitionBits(20), WithCapacityBits(0))
	assert.Equal(t, 1<<MaxPartitionBits, s.PartitionCount())
	assert.Equal(t, DefaultCapacityBits, s.CapacityBits())
	assert.True(t, s.Concurrent())

	s = NewInt64Set(WithPartitionBits(0), WithCapacityBits(2), WithConcurrent(false))
	assert.Equal(t, 1, s.PartitionCount())
	assert.Equal(t, MinCapacityBits, s.CapacityBits())
	assert.False(t, s.Concurrent())

	for _, st := range s.Stats() {
		assert.Equal(t, 1<<MinCapacityBits, st.Buckets)
	}
}

func TestSetMatchesReference(t *testing.T) {
	for _, concurrent := range []bool{true, false} {
		t.Run(fmt.Sprintf("concurrent=%v", concurrent), func(t *testing.T) {
			s := NewInt64Set(WithPartitionBits(3), WithCapacityBits(4), WithConcurrent(concurrent))
			ref := make(map[int64]struct{})
			rng := rand.New(rand.NewPCG(1, 2))

			for range 50_000 {
				k := rng.Int64N(5_000)
				switch rng.IntN(3) {
				case 0, 1:
					_, had := ref[k]
					ref[k] = struct{}{}
					require.Equal(t, !had, s.Add(k), "add %d", k)
				case 2:
					_, had := ref[k]
					delete(ref, k)
					require.Equal(t, had, s.Remove(k), "remove %d", k)
				}
			}

			require.Equal(t, uint64(len(ref)), s.Size())
			for k := range int64(5_000) {
				_, want := ref[k]
				require.Equal(t, want, s.Contains(k), "contains %d", k)
			}
		})
	}
}

func TestSetGrowthPreservesKeys(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	s := NewInt64Set(WithPartitionBits(1), WithCapacityBits(4), WithMetrics(metrics))

	const n = 100_000
	for i := range int64(n) {
		require.True(t, s.Add(i))
	}
	assert.Equal(t, uint64(n), s.Size())
	assert.Positive(t, metrics.Grows.Load())

	var total int64
	for _, st := range s.Stats() {
		total += st.Count
		assert.Greater(t, st.Buckets, 1<<4, "partition %d did not grow", st.Index)
		assert.LessOrEqual(t, st.Count, int64(DefaultLoadFactor*st.Buckets))
		assert.Positive(t, st.Bytes)
	}
	assert.Equal(t, int64(n), total)
	assert.Greater(t, s.MemoryUsage(), int64(n*8))

	for i := range int64(n) {
		require.True(t, s.Contains(i), "lost key %d after growth", i)
	}
}

func TestSetRoutingIsDeterministic(t *testing.T) {
	a := NewBytesSet(WithPartitionBits(4))
	b := NewBytesSet(WithPartitionBits(4))

	for i := range 1000 {
		k := fmt.Appendf(nil, "key-%d", i)
		a.Add(k)
		b.Add(k)
	}

	sa, sb := a.Stats(), b.Stats()
	for i := range sa {
		assert.Equal(t, sa[i].Count, sb[i].Count, "partition %d", i)
	}
}

func TestSetClear(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	s := NewInt64Set(WithPartitionBits(2), WithCapacityBits(4), WithMetrics(metrics))
	for i := range int64(10_000) {
		s.Add(i)
	}

	s.Clear()
	assert.Equal(t, uint64(0), s.Size())
	assert.False(t, s.Contains(42))
	assert.Equal(t, int64(1), metrics.Clears.Load())
	for _, st := range s.Stats() {
		assert.Equal(t, 1<<4, st.Buckets, "clear must shrink to the initial table")
		assert.Equal(t, uint64(1), st.Generation)
	}

	assert.True(t, s.Add(42))
	assert.True(t, s.Contains(42))
}

func TestClosedSetFailsSafely(t *testing.T) {
	s := NewBytesSet()
	s.Add([]byte("a"))
	it := s.Iterator()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close must be idempotent")
	assert.True(t, s.Closed())

	assert.False(t, s.Add([]byte("b")))
	assert.False(t, s.Remove([]byte("a")))
	assert.False(t, s.Contains([]byte("a")))
	assert.Equal(t, uint64(0), s.Size())
	s.Clear()

	assert.False(t, it.HasNext())
	_, err := it.Next()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, s.Erase(it, 10))

	other := NewBytesSet()
	other.Add([]byte("z"))
	assert.Equal(t, uint64(0), s.AddAll(other))
	assert.Equal(t, uint64(0), other.AddAll(s))
	assert.False(t, s.AddExclusive([]byte("z"), other))
	assert.True(t, other.AddExclusive([]byte("y"), s), "a closed other set is empty")
}

func TestSetLogsGrowth(t *testing.T) {
	var buf syncBuffer
	logger := NewLogger(newTestHandler(&buf))
	s := NewInt64Set(WithPartitionBits(0), WithCapacityBits(4), WithLogger(logger))
	for i := range int64(1000) {
		s.Add(i)
	}
	assert.Contains(t, buf.String(), "partition grown")
}

func TestConcurrentMatchesReference(t *testing.T) {
	s := NewInt64Set(WithPartitionBits(4), WithCapacityBits(4))

	const workers = 16
	const perWorker = 20_000

	// Worker w owns keys congruent to w mod workers, adds them all, then
	// removes the multiples of 3 while reading everything.
	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			for i := range perWorker {
				k := int64(i*workers + w)
				if !s.Add(k) {
					return fmt.Errorf("worker %d: add %d returned false", w, k)
				}
			}
			for i := range perWorker {
				k := int64(i*workers + w)
				if !s.Contains(k) {
					return fmt.Errorf("worker %d: lost %d", w, k)
				}
				if k%3 == 0 && !s.Remove(k) {
					return fmt.Errorf("worker %d: remove %d returned false", w, k)
				}
				_ = s.Contains(k + 1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ref := make(map[int64]struct{})
	for k := range int64(workers * perWorker) {
		if k%3 != 0 {
			ref[k] = struct{}{}
		}
	}
	require.Equal(t, uint64(len(ref)), s.Size())
	for k := range int64(workers * perWorker) {
		_, want := ref[k]
		require.Equal(t, want, s.Contains(k), "key %d", k)
	}
}

func TestConcurrentDuplicateAdds(t *testing.T) {
	s := NewBytesSet(WithPartitionBits(2), WithCapacityBits(4))

	const workers = 8
	const keys = 10_000
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := 0
			for i := range keys {
				if s.Add(fmt.Appendf(nil, "k%d", i)) {
					local++
				}
			}
			mu.Lock()
			wins += local
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, keys, wins, "each key must be added by exactly one goroutine")
	assert.Equal(t, uint64(keys), s.Size())
}
