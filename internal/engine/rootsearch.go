package engine

import (
	"sort"

	"github.com/samber/lo"

	"github.com/nilsberg/chesscore/internal/board"
)

// aspirationDelta is the initial half-width of the aspiration window
// opened around the previous iteration's score; it widens geometrically
// on each fail rather than jumping straight to +-Infinity.
const aspirationDelta = 12

// RootSearchResult is one reported line: a move, its score, and the PV
// that follows it.
type RootSearchResult struct {
	Move  board.Move
	Score int
	Depth int
	PV    []board.Move
}

// searchRootDepth runs one iterative-deepening depth for the main thread,
// opening an aspiration window around prevScore from depth 5 on, once a
// prior iteration gives a score to aspire around, and widening the missed
// side after each fail, with delta growing by a quarter plus 2, until the true score
// is bracketed.
func searchRootDepth(w *Worker, pos *board.Position, depth int, prevScore int, hasPrevScore bool) (board.Move, int) {
	if depth < 5 || !hasPrevScore {
		return w.SearchDepth(depth, -Infinity, Infinity)
	}

	delta := aspirationDelta
	alpha := clampInt(prevScore-delta, -Infinity, Infinity)
	beta := clampInt(prevScore+delta, -Infinity, Infinity)

	for {
		move, score := w.SearchDepth(depth, alpha, beta)
		if w.stopped() {
			return move, score
		}
		if score <= alpha {
			beta = (alpha + beta) / 2
			alpha = clampInt(score-delta, -Infinity, Infinity)
			delta += delta/4 + 2
		} else if score >= beta {
			beta = clampInt(score+delta, -Infinity, Infinity)
			delta += delta/4 + 2
		} else {
			return move, score
		}
		if alpha <= -Infinity && beta >= Infinity {
			return w.SearchDepth(depth, -Infinity, Infinity)
		}
	}
}

// rescoreRootMoves re-ranks the root move list from {PV/hash move first,
// a move that failed low last iteration demoted, MVV-LVA for captures,
// killer bonus, plain history for quiets} — recomputed every iteration
// rather than frozen at move-list construction time, so a move that quietly
// got better over the course of the search rises. Counter-moves are not
// used at the root, and the whole list is re-sorted on every call.
func rescoreRootMoves(w *Worker, moves []board.Move, ttMove board.Move, failingLow map[board.Move]bool) []board.Move {
	killer1, killer2 := w.history.Killers(0)
	scored := lo.Map(moves, func(m board.Move, _ int) struct {
		move  board.Move
		score int
	} {
		score := 0
		switch {
		case m == ttMove:
			score = TTMoveScore
		case failingLow[m]:
			score = BadCaptureBase
		case m.IsCapture(w.pos):
			attacker := w.pos.PieceAt(m.From())
			victim := w.pos.PieceAt(m.To())
			if attacker != board.NoPiece && victim != board.NoPiece && victim.Type() < board.King {
				score = GoodCaptureBase + mvvLva[victim.Type()][attacker.Type()]*1000
			}
		case m == killer1:
			score = KillerScore1
		case m == killer2:
			score = KillerScore2
		default:
			score = w.history.HistoryScore(w.pos.SideToMove, m)
		}
		return struct {
			move  board.Move
			score int
		}{m, score}
	})

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	return lo.Map(scored, func(s struct {
		move  board.Move
		score int
	}, _ int) board.Move {
		return s.move
	})
}

// multiPVSlots runs k independent root searches, each excluding the moves
// already claimed by a better-scoring slot, and returns them best-first.
func multiPVSlots(w *Worker, pos *board.Position, depth, k int) []RootSearchResult {
	var excluded []board.Move
	results := make([]RootSearchResult, 0, k)

	for slot := 0; slot < k; slot++ {
		w.SetExcludedMoves(excluded)
		move, score := w.SearchDepth(depth, -Infinity, Infinity)
		if move == board.NoMove || w.stopped() {
			break
		}
		results = append(results, RootSearchResult{
			Move:  move,
			Score: score,
			Depth: depth,
			PV:    w.GetPV(),
		})
		excluded = append(excluded, move)
	}
	w.SetExcludedMoves(nil)
	return results
}
