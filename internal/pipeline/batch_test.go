package pipeline

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	assert.Len(t, Chunk([]int{1, 2, 3, 4, 5}, 2), 3)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Chunk([]int{1, 2, 3, 4, 5}, 2))
	assert.Nil(t, Chunk([]int(nil), 2))
	assert.Equal(t, [][]int{{1, 2, 3}}, Chunk([]int{1, 2, 3}, 10))
	// Non-positive size degrades to a single batch.
	assert.Equal(t, [][]int{{1, 2, 3}}, Chunk([]int{1, 2, 3}, 0))
}

func TestRunSettled_CollectsAllOutcomes(t *testing.T) {
	items := []int{1, 2, 3, 4}

	outcomes := RunSettled(context.Background(), items, 2, func(ctx context.Context, n int) (int, error) {
		if n%2 == 0 {
			return 0, eris.Errorf("item %d failed", n)
		}
		return n * 10, nil
	})

	require.Len(t, outcomes, 4)
	assert.Equal(t, 10, outcomes[0].Value)
	assert.Error(t, outcomes[1].Err)
	assert.Equal(t, 30, outcomes[2].Value)
	assert.Error(t, outcomes[3].Err)
}

func TestRunSettled_FailureDoesNotCancelSiblings(t *testing.T) {
	var ran atomic.Int32

	outcomes := RunSettled(context.Background(), []int{1, 2, 3, 4, 5}, 1, func(ctx context.Context, n int) (int, error) {
		ran.Add(1)
		if n == 1 {
			return 0, eris.New("first fails")
		}
		return n, nil
	})

	assert.Equal(t, int32(5), ran.Load())
	assert.Error(t, outcomes[0].Err)
	for _, o := range outcomes[1:] {
		assert.NoError(t, o.Err)
	}
}

func TestRunSettled_BoundedConcurrency(t *testing.T) {
	var current, peak atomic.Int32

	RunSettled(context.Background(), make([]int, 20), 3, func(ctx context.Context, _ int) (int, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		current.Add(-1)
		return 0, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
}
