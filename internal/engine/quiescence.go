package engine

import (
	"github.com/nilsberg/chesscore/internal/board"
)

// quiescence resolves a position's tactical noise before the static eval
// is trusted: stand pat, then walk captures (and, while in check, every
// legal evasion) until no capture can still improve on alpha.
func (w *Worker) quiescence(ply, alpha, beta int) int {
	if ply >= MaxPly-1 {
		return w.correctedEval()
	}
	if w.nodes&2047 == 0 && w.stopped() {
		return 0
	}
	w.nodes++
	if ply > w.seldepth {
		w.seldepth = ply
	}
	w.pv.clear(ply)

	inCheck := w.pos.InCheck()

	ttMove := board.NoMove
	if entry, found := w.tt.Probe(w.pos.Hash); found {
		ttMove = entry.Move
		score := FixMateScoreProbe(int(entry.Score), ply)
		switch entry.Flag {
		case TTExact:
			return score
		case TTLowerBound:
			if score >= beta {
				return score
			}
		case TTUpperBound:
			if score <= alpha {
				return score
			}
		}
	}

	var standPat, bestScore int
	if !inCheck {
		standPat = w.correctedEval()
		bestScore = standPat
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
		// Global delta-pruning margin: if even gaining a queen could not
		// reach alpha, stop generating captures altogether.
		if standPat+QueenValue+lazyEvalMargin < alpha {
			return standPat
		}
	} else {
		bestScore = -Infinity
	}

	sel := NewQuiescenceSelector(w.pos, w.history, ply, ttMove, inCheck, func(m board.Move) int {
		return w.quietHistoryScore(ply, m)
	})
	legalMoves := 0
	bestMove := board.NoMove

	for {
		m, ok := sel.Next()
		if !ok {
			break
		}
		legalMoves++

		if !inCheck && sel.Stage() != stageTT {
			// Per-move delta pruning: this capture's best-case material
			// gain still can't reach alpha.
			gain := captureValue(w.pos, m)
			if standPat+gain+lazyEvalMargin < alpha && !SEEGe(w.pos, m, 1) {
				continue
			}
			if !SEEGe(w.pos, m, 0) {
				continue
			}
		}

		undo := w.pos.MakeMove(m)
		score := -w.quiescence(ply+1, -beta, -alpha)
		w.pos.UnmakeMove(m, undo)

		if w.stopped() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				w.pv.update(ply, m)
				if alpha >= beta {
					break
				}
			}
		}
	}

	if inCheck && legalMoves == 0 {
		return -MateScore + ply
	}

	flag := TTUpperBound
	if bestScore >= beta {
		flag = TTLowerBound
	} else if bestMove != board.NoMove {
		flag = TTExact
	}
	w.tt.Store(w.pos.Hash, 0, FixMateScoreAdd(bestScore, ply), standPat, flag, bestMove)

	return bestScore
}

// captureValue estimates the material a move wins, for quiescence's
// per-move delta-pruning margin.
func captureValue(pos *board.Position, m board.Move) int {
	if m.IsEnPassant() {
		return pieceValues[board.Pawn]
	}
	captured := pos.PieceAt(m.To())
	gain := 0
	if captured != board.NoPiece {
		gain = pieceValues[captured.Type()]
	}
	if m.IsPromotion() {
		gain += pieceValues[m.Promotion()] - pieceValues[board.Pawn]
	}
	return gain
}
