package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nilsberg/chesscore/internal/board"
)

func TestHistoryGravityPullsTowardBonus(t *testing.T) {
	h := NewHistoryTables()
	move := board.NewMove(board.E2, board.E4)

	for i := 0; i < 20; i++ {
		h.UpdateHistory(board.White, move, 200)
	}
	positive := h.HistoryScore(board.White, move)
	assert.Positive(t, positive)

	for i := 0; i < 40; i++ {
		h.UpdateHistory(board.White, move, -200)
	}
	assert.Less(t, h.HistoryScore(board.White, move), positive)
}

func TestKillersPushOlderSlot(t *testing.T) {
	h := NewHistoryTables()
	m1 := board.NewMove(board.E2, board.E4)
	m2 := board.NewMove(board.D2, board.D4)

	h.UpdateKillers(m1, 3)
	h.UpdateKillers(m2, 3)

	k1, k2 := h.Killers(3)
	assert.Equal(t, m2, k1)
	assert.Equal(t, m1, k2)
}

func TestKillersIgnoreDuplicateMove(t *testing.T) {
	h := NewHistoryTables()
	m1 := board.NewMove(board.E2, board.E4)

	h.UpdateKillers(m1, 1)
	h.UpdateKillers(m1, 1)

	k1, k2 := h.Killers(1)
	assert.Equal(t, m1, k1)
	assert.Equal(t, board.NoMove, k2)
}

func TestCounterMoveRoundTrip(t *testing.T) {
	h := NewHistoryTables()
	prev := board.NewMove(board.E2, board.E4)
	counter := board.NewMove(board.D7, board.D5)

	h.UpdateCounterMove(prev, counter, board.WhitePawn)

	assert.Equal(t, counter, h.CounterMove(prev, board.WhitePawn))
	assert.Equal(t, board.NoMove, h.CounterMove(prev, board.BlackPawn))
}

func TestContinuationHistoryPlanesAreIndependent(t *testing.T) {
	h := NewHistoryTables()
	h.UpdateContinuation(0, board.WhiteKnight, board.F3, board.BlackKnight, board.F6, 150)

	score := h.ContinuationScore(0, board.WhiteKnight, board.F3, board.BlackKnight, board.F6)
	assert.Positive(t, score)
	assert.Zero(t, h.ContinuationScore(1, board.WhiteKnight, board.F3, board.BlackKnight, board.F6))
	assert.Zero(t, h.ContinuationScore(0, board.WhiteBishop, board.F3, board.BlackKnight, board.F6))

	h.UpdateContinuation(1, board.WhiteKnight, board.F3, board.BlackKnight, board.F6, 150)
	assert.Positive(t, h.ContinuationScore(1, board.WhiteKnight, board.F3, board.BlackKnight, board.F6))
}

func TestClearResetsEverything(t *testing.T) {
	h := NewHistoryTables()
	move := board.NewMove(board.E2, board.E4)
	h.UpdateHistory(board.White, move, 200)
	h.UpdateKillers(move, 0)

	h.Clear()

	assert.Zero(t, h.HistoryScore(board.White, move))
	k1, k2 := h.Killers(0)
	assert.Equal(t, board.NoMove, k1)
	assert.Equal(t, board.NoMove, k2)
}
