package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsberg/chesscore/internal/board"
)

func TestMultiPV(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16)

	limits := SearchLimits{
		Depth:    4,
		MoveTime: 2 * time.Second,
		MultiPV:  3,
	}

	results := eng.SearchMultiPV(pos, limits)
	require.GreaterOrEqual(t, len(results), 2, "expected at least 2 PVs")

	assert.NotEqual(t, results[0].Move, results[1].Move, "first two PVs should differ")

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score,
			"PV %d should not outscore PV %d", i+1, i)
	}
}

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16)
	eng.SetDifficulty(Easy)

	move := eng.Search(pos)
	assert.NotEqual(t, board.NoMove, move, "search returned NoMove for starting position")
}

func TestSearchFindsMateInOne(t *testing.T) {
	// Back-rank mate in one for white: Ra8#.
	pos, err := board.ParseFEN("6k1/8/6K1/8/8/8/8/R7 w - - 0 1")
	require.NoError(t, err)

	eng := NewEngine(16)
	move := eng.Search(pos)

	undo := pos.MakeMove(move)
	defer pos.UnmakeMove(move, undo)
	pos.UpdateCheckers()

	assert.True(t, pos.InCheck())
	assert.Zero(t, pos.GenerateLegalMoves().Len(), "expected no legal replies after mate")
}

func TestPawnHashTable(t *testing.T) {
	pt := NewPawnTable(1)
	pos := board.NewPosition()

	_, _, found := pt.Probe(pos.PawnKey)
	assert.False(t, found, "expected cache miss on first probe")

	pt.Store(pos.PawnKey, -15, -20)

	mg, eg, found := pt.Probe(pos.PawnKey)
	require.True(t, found, "expected cache hit after store")
	assert.Equal(t, -15, mg)
	assert.Equal(t, -20, eg)

	oldKey := pos.PawnKey
	move := board.NewMove(board.E2, board.E4)
	undo := pos.MakeMove(move)
	assert.NotEqual(t, oldKey, pos.PawnKey, "pawn key should change when a pawn moves")

	pos.UnmakeMove(move, undo)
	assert.Equal(t, oldKey, pos.PawnKey, "pawn key should be restored on unmake")
}
