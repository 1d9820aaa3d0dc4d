package main

import (
	"context"
	"strconv"
	"testing"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/stretchr/testify/require"

	"github.com/jcalabro/fastset"
)

func init() {
	log = fastset.NoopLogger()
}

func newTestBench(ids []int64) *bench {
	ref := roaring64.New()
	for _, id := range ids {
		ref.Add(uint64(id))
	}
	return &bench{workers: 4, eraseBatch: 100, ref: ref}
}

func TestRunPhasesInt64(t *testing.T) {
	ids, err := loadKeys("", 20_000)
	require.NoError(t, err)
	ids = append(ids, ids[:500]...) // duplicates must not change the size

	err = runPhases(context.Background(), newTestBench(ids), ids, func() *fastset.Int64Set {
		return fastset.NewInt64Set(fastset.WithPartitionBits(3), fastset.WithCapacityBits(4))
	}, func(k int64) (int64, error) {
		return k, nil
	})
	require.NoError(t, err)
}

func TestRunPhasesBytes(t *testing.T) {
	ids, err := loadKeys("", 5000)
	require.NoError(t, err)
	keys := make([][]byte, len(ids))
	for i, id := range ids {
		keys[i] = strconv.AppendInt(nil, id, 10)
	}

	err = runPhases(context.Background(), newTestBench(ids), keys, func() *fastset.BytesSet {
		return fastset.NewBytesSet(fastset.WithPartitionBits(2))
	}, func(k []byte) (int64, error) {
		return strconv.ParseInt(string(k), 10, 64)
	})
	require.NoError(t, err)
}

func TestRunPhasesCanceled(t *testing.T) {
	ids, err := loadKeys("", 1000)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = runPhases(ctx, newTestBench(ids), ids, func() *fastset.Int64Set {
		return fastset.NewInt64Set()
	}, func(k int64) (int64, error) {
		return k, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
