package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsberg/chesscore/internal/board"
)

func TestWorkerPoolResizeGrowsAndShrinks(t *testing.T) {
	tt := NewTranspositionTable(1)
	pool := NewWorkerPool(1, tt)
	require.Equal(t, 1, pool.Size())

	pool.Resize(4)
	assert.Equal(t, 4, pool.Size())

	pool.Resize(2)
	assert.Equal(t, 2, pool.Size())
}

func TestWorkerPoolResizePreservesSharedHistory(t *testing.T) {
	tt := NewTranspositionTable(1)
	pool := NewWorkerPool(1, tt)
	move := board.NewMove(board.E2, board.E4)
	pool.history.UpdateKillers(move, 0)

	pool.Resize(3)

	k1, _ := pool.history.Killers(0)
	assert.Equal(t, move, k1, "resizing the pool must not drop the shared history tables")
}

func TestWorkerPoolResetSeedsEveryWorker(t *testing.T) {
	tt := NewTranspositionTable(1)
	pool := NewWorkerPool(2, tt)
	pos := board.NewPosition()

	pool.Reset(pos, []uint64{pos.Hash})

	for _, w := range pool.Workers() {
		assert.NotNil(t, w.pos)
		assert.Equal(t, uint64(0), w.Nodes())
	}
}

func TestSkipDepthMainThreadNeverSkips(t *testing.T) {
	for depth := 1; depth <= 30; depth++ {
		assert.Equal(t, depth, skipDepth(0, depth))
	}
}

func TestSkipDepthHelperThreadsSometimesAdvance(t *testing.T) {
	advancedAtLeastOnce := false
	for depth := 1; depth <= 40; depth++ {
		if skipDepth(1, depth) != depth {
			advancedAtLeastOnce = true
		}
	}
	assert.True(t, advancedAtLeastOnce, "a helper thread should diverge from the main depth at least once")
}
