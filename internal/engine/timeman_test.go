package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nilsberg/chesscore/internal/board"
)

func TestTimeManagerFixedMoveTime(t *testing.T) {
	limits := SearchLimits{MoveTime: 500 * time.Millisecond}
	tm := NewTimeManager(limits, board.White, nil, 1)

	assert.True(t, tm.PastMaximum(500*time.Millisecond))
	assert.False(t, tm.PastMaximum(499*time.Millisecond))
	assert.True(t, tm.ShouldStopIteration(500*time.Millisecond, 5))
}

func TestTimeManagerInfiniteNeverExpires(t *testing.T) {
	tm := NewTimeManager(SearchLimits{Infinite: true}, board.White, nil, 1)

	assert.False(t, tm.PastMaximum(24*time.Hour))
	assert.False(t, tm.PastOptimum(24*time.Hour))
	assert.False(t, tm.ShouldStopIteration(time.Hour, 30))
}

func TestTimeManagerDepthOnlySearchIsTreatedAsInfinite(t *testing.T) {
	limits := SearchLimits{Depth: 20}
	tm := NewTimeManager(limits, board.White, nil, 1)

	assert.False(t, tm.PastMaximum(time.Hour))
}

func TestTimeManagerMovesToGoAllocatesLessThanWholeClock(t *testing.T) {
	limits := SearchLimits{MovesToGo: 20}
	limits.Time[board.White] = 60 * time.Second
	tm := NewTimeManager(limits, board.White, nil, 1)

	assert.Less(t, tm.optimum, 60*time.Second)
	assert.LessOrEqual(t, tm.optimum, tm.maximum)
}

func TestTimeManagerSuddenDeathWithIncrementGrowsOptimumWithIncrement(t *testing.T) {
	pos := board.NewPosition()
	base := SearchLimits{}
	base.Time[board.White] = 30 * time.Second

	withInc := base
	withInc.Inc[board.White] = 2 * time.Second

	tmNoInc := NewTimeManager(base, board.White, pos, 1)
	tmWithInc := NewTimeManager(withInc, board.White, pos, 1)

	assert.Greater(t, tmWithInc.optimum, tmNoInc.optimum)
}

func TestTimeManagerOptimumNeverExceedsMaximum(t *testing.T) {
	limits := SearchLimits{}
	limits.Time[board.White] = 5 * time.Second
	tm := NewTimeManager(limits, board.White, nil, 1)

	assert.LessOrEqual(t, tm.optimum, tm.maximum)
}

func TestTimeManagerNotifyIterationNarrowsOnStableBestMove(t *testing.T) {
	limits := SearchLimits{}
	limits.Time[board.White] = 30 * time.Second
	tm := NewTimeManager(limits, board.White, nil, 1)

	firstOptimum := tm.optimum
	for i := 0; i < 5; i++ {
		tm.NotifyIteration(false)
	}
	assert.Less(t, tm.optimum, firstOptimum, "a repeatedly-confirmed best move should shrink the allocation")

	tm.NotifyIteration(true)
	assert.Equal(t, 0, tm.constantRootMoves)
	assert.Equal(t, firstOptimum, tm.optimum, "a changed best move resets the allocation back to the baseline")
}

func TestTimeManagerNotifyIterationIgnoredForFixedAndInfinite(t *testing.T) {
	fixed := NewTimeManager(SearchLimits{MoveTime: time.Second}, board.White, nil, 1)
	fixed.NotifyIteration(false)
	assert.Equal(t, 0, fixed.constantRootMoves)

	inf := NewTimeManager(SearchLimits{Infinite: true}, board.White, nil, 1)
	inf.NotifyIteration(false)
	assert.Equal(t, 0, inf.constantRootMoves)
}
