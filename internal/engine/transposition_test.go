package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsberg/chesscore/internal/board"
)

func TestTranspositionStoreProbeRoundTrip(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xdeadbeefcafef00d)

	tt.Store(hash, 7, 123, -45, TTExact, board.NewMove(board.E2, board.E4))

	entry, found := tt.Probe(hash)
	require.True(t, found)
	assert.Equal(t, int16(123), entry.Score)
	assert.Equal(t, int16(-45), entry.StaticEval)
	assert.Equal(t, int8(7), entry.Depth)
	assert.Equal(t, TTExact, entry.Flag)
	assert.Equal(t, board.NewMove(board.E2, board.E4), entry.Move)
}

func TestTranspositionProbeMissOnDifferentHash(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(1, 5, 10, 10, TTExact, board.NoMove)

	_, found := tt.Probe(2)
	assert.False(t, found)
}

func TestTranspositionStorePreservesMoveWhenOmitted(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(12345)
	move := board.NewMove(board.D2, board.D4)

	tt.Store(hash, 3, 0, 0, TTExact, move)
	tt.Store(hash, 4, 5, 5, TTLowerBound, board.NoMove)

	entry, found := tt.Probe(hash)
	require.True(t, found)
	assert.Equal(t, move, entry.Move, "a later store without a move should keep the previous best move")
}

func TestTranspositionDepthZeroExactEntryIsNotTreatedAsEmpty(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(999)
	tt.Store(hash, 0, 30, 30, TTExact, board.NoMove)

	entry, found := tt.Probe(hash)
	require.True(t, found, "a depth-0 TTExact entry must still be reported as present")
	assert.Equal(t, int8(0), entry.Depth)
}

func TestTranspositionClear(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(1, 5, 10, 10, TTExact, board.NoMove)

	tt.Clear()

	_, found := tt.Probe(1)
	assert.False(t, found)
	assert.Equal(t, 0, tt.HashFull())
}

func TestSingularKeyDiffersFromPlainHash(t *testing.T) {
	hash := uint64(0x1122334455667788)
	move := board.NewMove(board.G1, board.F3)

	assert.NotEqual(t, hash, singularKey(hash, move))
}

func TestFixMateScoreRoundTrip(t *testing.T) {
	cases := []struct {
		score, ply int
	}{
		{MateScore - 3, 5},
		{-MateScore + 3, 5},
		{0, 5},
		{250, 12},
	}
	for _, c := range cases {
		stored := FixMateScoreAdd(c.score, c.ply)
		got := FixMateScoreProbe(stored, c.ply)
		assert.Equal(t, c.score, got)
	}
}

func TestNewSearchAdvancesGeneration(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(7, 5, 0, 0, TTExact, board.NoMove)
	before, _ := tt.Probe(7)

	tt.NewSearch()
	tt.Store(7, 5, 0, 0, TTExact, board.NoMove)
	after, _ := tt.Probe(7)

	assert.NotEqual(t, before.Generation, after.Generation)
}
