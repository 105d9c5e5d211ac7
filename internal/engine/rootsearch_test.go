package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsberg/chesscore/internal/board"
)

func newTestWorker() *Worker {
	tt := NewTranspositionTable(1)
	pawnTable := NewPawnTable(1)
	stop := &stopState{}
	w := NewWorker(0, tt, pawnTable, NewHistoryTables(), stop)
	pos := board.NewPosition()
	w.InitSearch(pos)
	return w
}

func TestSearchRootDepthReturnsLegalMove(t *testing.T) {
	w := newTestWorker()
	move, _ := searchRootDepth(w, w.pos, 3, 0, false)
	assert.NotEqual(t, board.NoMove, move)
}

func TestMultiPVSlotsExcludesPreviousSlots(t *testing.T) {
	w := newTestWorker()
	results := multiPVSlots(w, w.pos, 3, 3)

	require.GreaterOrEqual(t, len(results), 2)
	seen := make(map[board.Move]bool)
	for _, r := range results {
		assert.False(t, seen[r.Move], "move %s reported twice across MultiPV slots", r.Move.String())
		seen[r.Move] = true
	}
}

func TestRescoreRootMovesRanksTTMoveFirst(t *testing.T) {
	w := newTestWorker()
	moves := w.pos.GenerateLegalMoves()
	var list []board.Move
	for i := 0; i < moves.Len(); i++ {
		list = append(list, moves.Get(i))
	}
	ttMove := list[len(list)-1]

	ranked := rescoreRootMoves(w, list, ttMove, nil)
	assert.Equal(t, ttMove, ranked[0])
}

func TestRescoreRootMovesDemotesFailingLow(t *testing.T) {
	w := newTestWorker()
	moves := w.pos.GenerateLegalMoves()
	var list []board.Move
	for i := 0; i < moves.Len(); i++ {
		list = append(list, moves.Get(i))
	}

	failingLow := map[board.Move]bool{list[0]: true}
	ranked := rescoreRootMoves(w, list, board.NoMove, failingLow)

	assert.NotEqual(t, list[0], ranked[0], "a move that failed low last iteration should not stay on top")
}
