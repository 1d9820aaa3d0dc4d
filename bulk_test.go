package fastset

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAddAllDisjoint(t *testing.T) {
	a := NewInt64Set(WithPartitionBits(3))
	b := NewInt64Set(WithPartitionBits(3))
	for i := range int64(100) {
		a.Add(i)
		b.Add(i + 1000)
	}

	assert.Equal(t, uint64(100), a.AddAll(b))
	assert.Equal(t, uint64(200), a.Size())
	assert.Equal(t, uint64(100), b.Size(), "source must be unchanged")
	for i := range int64(100) {
		assert.True(t, a.Contains(i+1000))
	}
}

func TestAddAllCountsOnlyNewKeys(t *testing.T) {
	a := NewBytesSet(WithPartitionBits(2))
	b := NewBytesSet(WithPartitionBits(2))
	for i := range 100 {
		a.Add(fmt.Appendf(nil, "k%d", i))
		b.Add(fmt.Appendf(nil, "k%d", i+50))
	}

	assert.Equal(t, uint64(50), a.AddAll(b))
	assert.Equal(t, uint64(150), a.Size())
	assert.Equal(t, uint64(0), a.AddAll(b), "second merge adds nothing")
}

func TestAddAllSelfIsNoop(t *testing.T) {
	a := NewInt64Set()
	for i := range int64(10) {
		a.Add(i)
	}
	assert.Equal(t, uint64(0), a.AddAll(a))
	assert.Equal(t, uint64(0), a.AddAll(nil))
	assert.Equal(t, uint64(10), a.Size())
}

func TestAddAllDifferentPartitionCounts(t *testing.T) {
	a := NewInt64Set(WithPartitionBits(1), WithCapacityBits(4))
	b := NewInt64Set(WithPartitionBits(5), WithCapacityBits(4))
	for i := range int64(5000) {
		b.Add(i)
	}
	a.Add(0)

	assert.Equal(t, uint64(4999), a.AddAll(b))
	assert.Equal(t, uint64(5000), a.Size())
	for i := range int64(5000) {
		require.True(t, a.Contains(i), "missing %d", i)
	}

	// And back into the finer-partitioned set.
	c := NewInt64Set(WithPartitionBits(5))
	assert.Equal(t, uint64(5000), c.AddAll(a))
}

func TestAddAllOppositeDirectionsDoNotDeadlock(t *testing.T) {
	for _, bits := range []int{3, -1} {
		a := NewInt64Set(WithPartitionBits(3))
		b := NewInt64Set(WithPartitionBits(bits))
		for i := range int64(2000) {
			a.Add(i)
			b.Add(i + 1000)
		}

		var g errgroup.Group
		for range 8 {
			g.Go(func() error {
				a.AddAll(b)
				return nil
			})
			g.Go(func() error {
				b.AddAll(a)
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, uint64(3000), a.Size())
		assert.Equal(t, uint64(3000), b.Size())
	}
}

func TestAddAllConcurrentWithWriters(t *testing.T) {
	a := NewInt64Set(WithPartitionBits(2), WithCapacityBits(4))
	b := NewInt64Set(WithPartitionBits(2), WithCapacityBits(4))
	for i := range int64(10_000) {
		b.Add(i)
	}

	var g errgroup.Group
	g.Go(func() error {
		a.AddAll(b)
		return nil
	})
	for w := range 4 {
		g.Go(func() error {
			for i := range 5000 {
				a.Add(int64(100_000 + w*5000 + i))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, uint64(30_000), a.Size())
}

func TestAddExclusive(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	next := NewInt64Set(WithMetrics(metrics))
	visited := NewInt64Set()
	visited.Add(1)

	assert.False(t, next.AddExclusive(1, visited), "claimed elsewhere")
	assert.False(t, next.Contains(1))

	assert.True(t, next.AddExclusive(2, visited))
	assert.True(t, next.Contains(2))
	assert.False(t, visited.Contains(2))

	assert.False(t, next.AddExclusive(2, visited), "already present")

	assert.Equal(t, int64(1), metrics.ExclusiveInserted.Load())
	assert.Equal(t, int64(2), metrics.ExclusiveRejected.Load())
}

func TestAddExclusiveNilAndSelf(t *testing.T) {
	s := NewBytesSet()
	assert.True(t, s.AddExclusive([]byte("a"), nil))
	assert.False(t, s.AddExclusive([]byte("a"), nil))
	assert.True(t, s.AddExclusive([]byte("b"), s))
	assert.False(t, s.AddExclusive([]byte("b"), s))
	assert.Equal(t, uint64(2), s.Size())
}

func TestAddExclusiveDifferentPartitionCounts(t *testing.T) {
	a := NewInt64Set(WithPartitionBits(0))
	b := NewInt64Set(WithPartitionBits(6))
	for i := range int64(1000) {
		if i%2 == 0 {
			b.Add(i)
		}
	}
	for i := range int64(1000) {
		assert.Equal(t, i%2 != 0, a.AddExclusive(i, b), "key %d", i)
	}
	assert.Equal(t, uint64(500), a.Size())
}

// TestAddExclusiveRaceIsMutuallyExclusive races goroutines claiming the same
// key into two sets, each excluding the other, and checks that exactly one
// set wins in every trial.
func TestAddExclusiveRaceIsMutuallyExclusive(t *testing.T) {
	const trials = 300
	const racers = 8

	for trial := range trials {
		a := NewInt64Set(WithPartitionBits(trial % 4))
		b := NewInt64Set(WithPartitionBits((trial + 1) % 5))
		key := int64(trial)

		var start, done sync.WaitGroup
		start.Add(1)
		var mu sync.Mutex
		wins := 0
		for r := range racers {
			done.Add(1)
			go func() {
				defer done.Done()
				start.Wait()
				var won bool
				if r%2 == 0 {
					won = a.AddExclusive(key, b)
				} else {
					won = b.AddExclusive(key, a)
				}
				if won {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		start.Done()
		done.Wait()

		require.Equal(t, 1, wins, "trial %d", trial)
		require.NotEqual(t, a.Contains(key), b.Contains(key), "trial %d: both or neither set holds the key", trial)
	}
}

func TestAddExclusiveManyKeysRace(t *testing.T) {
	a := NewBytesSet(WithPartitionBits(3), WithCapacityBits(4))
	b := NewBytesSet(WithPartitionBits(2), WithCapacityBits(4))

	const keys = 5000
	var g errgroup.Group
	for w := range 8 {
		g.Go(func() error {
			for i := range keys {
				k := fmt.Appendf(nil, "v%d", i)
				if w%2 == 0 {
					a.AddExclusive(k, b)
				} else {
					b.AddExclusive(k, a)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, uint64(keys), a.Size()+b.Size())
	for i := range keys {
		k := fmt.Appendf(nil, "v%d", i)
		require.NotEqual(t, a.Contains(k), b.Contains(k), "key %s", k)
	}
}

func TestUnsupportedAlgebra(t *testing.T) {
	a := NewInt64Set()
	b := NewInt64Set()

	_, err := a.RemoveAll(b)
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = a.RetainAll(b)
	require.ErrorIs(t, err, ErrUnsupported)
}
