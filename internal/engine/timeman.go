package engine

import (
	"time"

	"github.com/nilsberg/chesscore/internal/board"
)

type timeMode int

const (
	modeFixed timeMode = iota
	modeInfinite
	modeMovesToGo
	modeIncrement
	modeSuddenDeath
)

// TimeManager computes soft ("optimum") and hard ("maximum") deadlines for
// one search, using RubiChess's closed-form allocation rather than a flat
// timeLeft/movestogo division: the formulas differ for a given movestogo,
// sudden death with increment, and sudden death without increment, each
// with its own f1/f2 pair. The pair tightens as the root's best move stays
// stable across iterations (RubiChess's constantRootMoves), so a search
// that keeps agreeing with itself gets cut short rather than burning the
// full allocation on a move that was already decided.
type TimeManager struct {
	mode timeMode

	timeLeft  time.Duration
	inc       time.Duration
	movesToGo int
	overhead  time.Duration
	phase256  int

	constantRootMoves int

	optimum time.Duration
	maximum time.Duration
}

// NewTimeManager builds a TimeManager for limits from side's point of view.
// threads feeds RubiChess's per-thread overhead margin; pos supplies the
// game phase the increment-split formula needs.
func NewTimeManager(limits SearchLimits, side board.Color, pos *board.Position, threads int) *TimeManager {
	tm := &TimeManager{}

	if limits.MoveTime > 0 {
		tm.mode = modeFixed
		tm.optimum = limits.MoveTime
		tm.maximum = limits.MoveTime
		return tm
	}

	timeLeft := limits.Time[side]
	if limits.Infinite || (limits.Depth > 0 && timeLeft == 0) || timeLeft <= 0 {
		tm.mode = modeInfinite
		tm.optimum = 24 * time.Hour
		tm.maximum = 24 * time.Hour
		return tm
	}

	overhead := limits.MoveOverhead
	if overhead <= 0 {
		overhead = 30 * time.Millisecond
	}
	if threads > 1 {
		overhead += time.Duration(8*threads) * time.Millisecond
	}

	tm.timeLeft = timeLeft
	tm.inc = limits.Inc[side]
	tm.movesToGo = limits.MovesToGo
	tm.overhead = overhead

	switch {
	case tm.movesToGo > 0:
		tm.mode = modeMovesToGo
	case tm.inc > 0:
		tm.mode = modeIncrement
		if pos != nil {
			tm.phase256 = GamePhase256(pos)
		}
	default:
		tm.mode = modeSuddenDeath
	}

	tm.recompute()
	return tm
}

// NotifyIteration updates the constantRootMoves counter and re-derives the
// deadlines from it: RubiChess resets the counter whenever a new iteration
// disagrees with the previous best move, and widens the allocation back
// out, but narrows it one step further for every iteration that agrees.
func (tm *TimeManager) NotifyIteration(bestMoveChanged bool) {
	if tm.mode == modeFixed || tm.mode == modeInfinite {
		return
	}
	if bestMoveChanged {
		tm.constantRootMoves = 0
	} else {
		tm.constantRootMoves++
	}
	tm.recompute()
}

func (tm *TimeManager) recompute() {
	timetouse := tm.timeLeft
	inc := tm.inc
	crm := tm.constantRootMoves

	switch tm.mode {
	case modeMovesToGo:
		// stop soon at 0.9..1.9x average movetime, immediately at 1.5..2.5x.
		mtg := time.Duration(tm.movesToGo)
		f1 := time.Duration(maxInt(9, 19-2*crm))
		f2 := time.Duration(maxInt(15, 25-2*crm))
		tm.optimum = timetouse * f1 / (mtg + 1) / 10
		hardCap := maxDuration(0, timetouse-tm.overhead*mtg)
		tm.maximum = minDuration(hardCap, f2*timetouse/(mtg+1)/10)
	case modeIncrement:
		// split the remaining time into (256-phase) slots; stop soon after
		// 5..15 slots, immediately after 15..25.
		f1 := time.Duration(maxInt(5, 15-2*crm))
		f2 := time.Duration(maxInt(15, 25-2*crm))
		denom := time.Duration(256 - tm.phase256)
		if denom <= 0 {
			denom = 1
		}
		tm.optimum = maxDuration(inc, f1*(timetouse+inc)/denom)
		hardCap := maxDuration(0, timetouse-tm.overhead)
		tm.maximum = minDuration(hardCap, maxDuration(inc, f2*(timetouse+inc)/denom))
	case modeSuddenDeath:
		// play for another 1/32..1/42 of the clock, stop immediately at
		// 1/12..1/22.
		f1 := time.Duration(minInt(42, 32+2*crm))
		f2 := time.Duration(minInt(22, 12+2*crm))
		tm.optimum = timetouse / f1
		hardCap := maxDuration(0, timetouse-tm.overhead)
		tm.maximum = minDuration(hardCap, timetouse/f2)
	}

	tm.optimum = clampDuration(tm.optimum, 1*time.Millisecond, timetouse)
	tm.maximum = clampDuration(tm.maximum, tm.optimum, timetouse)
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// PastOptimum reports whether elapsed has passed the soft deadline: the
// guide stops opening new iterations once this is true but lets an
// in-flight iteration finish.
func (tm *TimeManager) PastOptimum(elapsed time.Duration) bool {
	return tm.mode != modeInfinite && elapsed >= tm.optimum
}

// PastMaximum reports whether elapsed has passed the hard deadline: the
// guide raises StopImmediately regardless of iteration progress.
func (tm *TimeManager) PastMaximum(elapsed time.Duration) bool {
	return tm.mode != modeInfinite && elapsed >= tm.maximum
}

// ShouldStopIteration decides, after finishing iteration `depth`, whether
// a further iteration is worth starting given elapsed time: fixed-movetime
// searches and the soft deadline both gate here, in addition to the
// continuous poll in SearchGuide.pollDeadline.
func (tm *TimeManager) ShouldStopIteration(elapsed time.Duration, depth int) bool {
	if tm.mode == modeInfinite {
		return false
	}
	if tm.mode == modeFixed {
		return elapsed >= tm.optimum
	}
	return tm.PastOptimum(elapsed)
}
