package engine

import (
	"sync/atomic"

	"github.com/nilsberg/chesscore/internal/board"
)

// Search bounds and sentinel scores. Scores are centipawns from the
// side-to-move's perspective; mate scores are encoded as distance from
// MateScore/-MateScore at the root.
const (
	Infinity   = 30000
	MateScore  = 29000
	MaxPly     = 128
	MultiPVMax = 8
	CMPlies    = 2 // continuation-history lookback, in plies
)

// Pruning constants, calibrated together; do not retune in isolation.
const (
	lazyEvalMargin          = 150
	historyPruningThreshold = -4000
	probcutDepth            = 5
	probcutMargin           = 100
	probcutReduction        = 4
	razorMaxDepth           = 2
	rfpMaxDepth             = 6
	futilityMaxDepth        = 6
	maxLMPDepth             = 9
	singularMinDepth        = 8
	iidMinDepth             = 3
	nullMoveMinDepth        = 2
	nullMoveVerifyDepth     = 12
	threatExtensionMinDepth = 4
	threatExtensionThresh   = 200
)

// Feature flags, kept for quick A/B disabling of individual pruning/
// extension techniques without touching the move loop itself.
const (
	EnableProbcut     = true
	EnableSingularExt = true
	EnableThreatExt   = true
)

// SkipSize/SkipDepths de-synchronise Lazy-SMP helper workers so they
// search different depths/windows instead of duplicating the main thread.
var SkipSize = [16]int{1, 1, 1, 2, 2, 2, 1, 3, 2, 2, 1, 3, 3, 2, 2, 1}
var SkipDepths = [16]int{1, 2, 2, 4, 4, 3, 2, 5, 4, 3, 2, 6, 5, 4, 3, 2}

// StopLevel is the coarse, monotonically increasing cancellation state
// shared by the guide and all workers. Workers only read it; only the
// SearchGuide advances it, and it never drops within a search.
type StopLevel uint32

const (
	Run StopLevel = iota
	StopSoon
	StopImmediately
	Stopped
	WantStop
	TerminatedSearch
)

// stopState is an atomic StopLevel with a monotonic raise operation.
type stopState struct {
	v atomic.Uint32
}

func (s *stopState) Load() StopLevel {
	return StopLevel(s.v.Load())
}

// Raise advances to level if level is higher than the current state.
func (s *stopState) Raise(level StopLevel) {
	for {
		cur := s.v.Load()
		if StopLevel(cur) >= level {
			return
		}
		if s.v.CompareAndSwap(cur, uint32(level)) {
			return
		}
	}
}

func (s *stopState) Reset() {
	s.v.Store(uint32(Run))
}

// shouldStop reports whether search at the current node should unwind.
func (s *stopState) shouldStop() bool {
	return s.Load() >= StopImmediately
}

// PVTable is a triangular principal-variation table: length[ply] <= ply
// means the PV at that ply is empty.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVTable) clear(ply int) {
	pv.length[ply] = ply
}

// update installs move as the best move at ply and appends the
// continuation copied from ply+1.
func (pv *PVTable) update(ply int, move board.Move) {
	pv.moves[ply][ply] = move
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = pv.length[ply+1]
}

func (pv *PVTable) line(ply int) []board.Move {
	n := pv.length[ply]
	if n <= ply {
		return nil
	}
	out := make([]board.Move, n-ply)
	copy(out, pv.moves[ply][ply:n])
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
