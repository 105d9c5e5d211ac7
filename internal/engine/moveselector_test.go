package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsberg/chesscore/internal/board"
)

func TestMoveSelectorYieldsTTMoveFirst(t *testing.T) {
	pos := board.NewPosition()
	ttMove := board.NewMove(board.D2, board.D4)

	sel := NewMoveSelector(pos, NewHistoryTables(), 0, ttMove, board.NoMove, board.NoPiece, nil)

	first, ok := sel.Next()
	require.True(t, ok)
	assert.Equal(t, ttMove, first)
	assert.Equal(t, stageTT, sel.Stage())
}

func TestMoveSelectorYieldsEveryLegalMoveExactlyOnce(t *testing.T) {
	pos := board.NewPosition()
	sel := NewMoveSelector(pos, NewHistoryTables(), 0, board.NoMove, board.NoMove, board.NoPiece, nil)

	seen := make(map[board.Move]int)
	for {
		m, ok := sel.Next()
		if !ok {
			break
		}
		seen[m]++
	}

	legal := pos.GenerateLegalMoves()
	assert.Equal(t, legal.Len(), len(seen))
	for m, count := range seen {
		assert.Equal(t, 1, count, "move %s should be yielded exactly once", m.String())
	}
}

func TestMoveSelectorPutsKillerBeforePlainQuiets(t *testing.T) {
	pos := board.NewPosition()
	ht := NewHistoryTables()
	killer := board.NewMove(board.G1, board.F3)
	ht.UpdateKillers(killer, 0)

	sel := NewMoveSelector(pos, ht, 0, board.NoMove, board.NoMove, board.NoPiece, nil)

	var order []board.Move
	for {
		m, ok := sel.Next()
		if !ok {
			break
		}
		order = append(order, m)
	}

	killerIdx, quietIdx := -1, -1
	for i, m := range order {
		if m == killer {
			killerIdx = i
		}
		if killerIdx == -1 && quietIdx == -1 && m != killer && !m.IsCapture(pos) {
			quietIdx = i
		}
	}
	require.NotEqual(t, -1, killerIdx)
	if quietIdx != -1 {
		assert.Less(t, killerIdx, quietIdx, "killer move should be offered before a plain quiet")
	}
}

func TestQuiescenceSelectorOffersOnlyCapturesWhenNotInCheck(t *testing.T) {
	pos, err := board.ParseFEN("rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2")
	require.NoError(t, err)

	sel := NewQuiescenceSelector(pos, NewHistoryTables(), 0, board.NoMove, false, nil)
	for {
		m, ok := sel.Next()
		if !ok {
			break
		}
		assert.True(t, m.IsCapture(pos), "quiescence selector yielded a non-capture outside check")
	}
}
