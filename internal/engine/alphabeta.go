package engine

import (
	"math/bits"

	"github.com/nilsberg/chesscore/internal/board"
	"github.com/nilsberg/chesscore/internal/tablebase"
)

func popCount(bb board.Bitboard) int {
	return bits.OnesCount64(uint64(bb))
}

// alphabeta is principal-variation search: the first move at a node is
// searched with a full window, every later move first with a null window
// and only re-searched with the full window if it beats alpha. ply is the
// distance from the root; isPV marks nodes on the current best line (the
// only nodes searched with a full [alpha,beta) window).
func (w *Worker) alphabeta(depth, ply, alpha, beta int, prevMove board.Move, isPV bool) int {
	if ply >= MaxPly-1 {
		return w.correctedEval()
	}
	if w.nodes&4095 == 0 && w.stopped() {
		return 0
	}
	w.nodes++
	w.pv.clear(ply)

	rootNode := ply == 0
	excluded := w.excludeMoveStack[ply]

	if !rootNode {
		if w.isDraw() {
			return 0
		}
		// Mate-distance pruning: no line below this node can matter once
		// the window itself is already outside what any mate score could
		// improve on.
		alpha = maxInt(alpha, -MateScore+ply)
		beta = minInt(beta, MateScore-ply-1)
		if alpha >= beta {
			return alpha
		}
	}

	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	inCheck := w.pos.InCheck()

	if !rootNode && w.tb != nil && w.tb.Available() && excluded == board.NoMove {
		if popCount(w.pos.AllOccupied) <= w.tb.MaxPieces() && w.pos.HalfMoveClock == 0 {
			if result := w.tb.Probe(w.pos); result.Found {
				w.tbHits++
				score := tablebase.WDLToScore(result.WDL, ply)
				var flag TTFlag
				switch {
				case result.WDL == tablebase.WDLWin:
					flag = TTLowerBound
				case result.WDL == tablebase.WDLLoss:
					flag = TTUpperBound
				default:
					flag = TTExact
				}
				if flag == TTExact || (flag == TTLowerBound && score >= beta) || (flag == TTUpperBound && score <= alpha) {
					w.tt.Store(w.pos.Hash, depth, FixMateScoreAdd(score, ply), score, flag, board.NoMove)
					return score
				}
			}
		}
	}

	hashKey := w.pos.Hash
	if excluded != board.NoMove {
		hashKey = singularKey(hashKey, excluded)
	}

	var ttMove board.Move
	ttEntry, found := w.tt.Probe(hashKey)
	if found {
		ttMove = ttEntry.Move
		if ttMove != board.NoMove {
			piece := w.pos.PieceAt(ttMove.From())
			if piece == board.NoPiece || piece.Color() != w.pos.SideToMove {
				ttMove = board.NoMove
			}
		}
		ttCutoffAllowed := !rootNode || !w.isExcludedRootMove(ttMove)
		if int(ttEntry.Depth) >= depth && ttCutoffAllowed && !isPV {
			score := FixMateScoreProbe(int(ttEntry.Score), ply)
			switch ttEntry.Flag {
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
	}

	staticEval := w.correctedEval()
	w.staticEvalStack[ply] = staticEval
	improving := false
	if ply >= 2 {
		improving = staticEval > w.staticEvalStack[ply-2]
	} else if rootNode {
		improving = false
	}

	if !isPV && !inCheck && excluded == board.NoMove {
		// Reverse futility pruning: we're so far above beta that even a
		// generous margin for the opponent's reply can't bring us back.
		if depth <= rfpMaxDepth {
			margin := 85*depth - 35*boolToInt(improving)*depth
			if staticEval-margin >= beta {
				return staticEval
			}
		}

		// Razoring: static eval is so low a single quiescence call is
		// trusted to confirm there's nothing worth a full search for.
		if depth <= razorMaxDepth && staticEval+200*depth < alpha {
			q := w.quiescence(ply, alpha, beta)
			if q < alpha {
				return q
			}
		}

		// Null-move pruning: give the opponent a free move and see if we
		// still beat beta; if so this position is too good to need a real
		// search. Verified with a reduced re-search once depth is large
		// enough that a zugzwang false-positive would be expensive.
		if depth >= nullMoveMinDepth && staticEval >= beta && w.pos.HasNonPawnMaterial() &&
			!(w.nullMovePly == ply-1 && w.nullMoveSide == w.pos.SideToMove.Other()) {
			r := 3 + depth/6
			undo := w.pos.MakeNullMove()
			w.nullMoveSide = w.pos.SideToMove.Other()
			w.nullMovePly = ply
			nullScore := -w.alphabeta(depth-1-r, ply+1, -beta, -beta+1, board.NoMove, false)
			w.pos.UnmakeNullMove(undo)

			if !w.stopped() && nullScore >= beta {
				if nullScore >= MateScore-MaxPly {
					nullScore = beta
				}
				if depth < nullMoveVerifyDepth {
					return nullScore
				}
				verify := w.alphabeta(depth-1-r, ply, beta-1, beta, prevMove, false)
				if verify >= beta {
					return nullScore
				}
			}
		}

		// ProbCut: a shallow search at a margin above beta, restricted to
		// captures, confirms whether a full search would fail high too.
		if EnableProbcut && depth >= probcutDepth && abs(beta) < MateScore-MaxPly {
			probBeta := beta + probcutMargin
			sel := NewQuiescenceSelector(w.pos, w.history, ply, ttMove, false, nil)
			for {
				m, ok := sel.Next()
				if !ok || sel.Stage() == stageDone {
					break
				}
				if !SEEGe(w.pos, m, probBeta-staticEval) {
					continue
				}
				undo := w.pos.MakeMove(m)
				score := -w.quiescence(ply+1, -probBeta, -probBeta+1)
				if score >= probBeta {
					score = -w.alphabeta(depth-probcutReduction, ply+1, -probBeta, -probBeta+1, m, false)
				}
				w.pos.UnmakeMove(m, undo)
				if w.stopped() {
					return 0
				}
				if score >= probBeta {
					return score
				}
			}
		}
	}

	// Internal iterative deepening: no hash move and deep enough to be
	// worth a cheap reduced search just to seed move ordering.
	if ttMove == board.NoMove && depth >= iidMinDepth && (isPV || !inCheck) {
		w.alphabeta(depth-2, ply, alpha, beta, prevMove, isPV)
		if w.pv.length[ply] > ply {
			ttMove = w.pv.moves[ply][ply]
		}
		w.pv.clear(ply)
	}

	checkExtension := 0
	if inCheck {
		checkExtension = 1
	}

	var prevPiece board.Piece = board.NoPiece
	if prevMove != board.NoMove {
		prevPiece = w.pos.PieceAt(prevMove.To())
	}

	sel := NewMoveSelector(w.pos, w.history, ply, ttMove, prevMove, prevPiece, func(m board.Move) int {
		return w.quietHistoryScore(ply, m)
	})

	bestScore := -Infinity
	bestMove := board.NoMove
	movesSearched := 0
	quietsSearched := 0
	failLowQuiets := make([]board.Move, 0, 32)
	origAlpha := alpha

	for {
		m, ok := sel.Next()
		if !ok {
			break
		}
		if rootNode && w.isExcludedRootMove(m) {
			continue
		}
		if m == excluded {
			continue
		}

		isQuiet := sel.Stage() == stageQuiets || sel.Stage() == stageKillers || sel.Stage() == stageCounter

		// Late move pruning: beyond this many quiets at this depth,
		// nothing further is worth generating a child node for.
		if !isPV && isQuiet && depth <= maxLMPDepth && quietsSearched >= lmpCutoff(improving, depth) {
			continue
		}

		// SEE-based pruning of clearly losing non-TT captures at shallow
		// depth, once we already have a move in hand.
		if !isPV && sel.Stage() == stageBadCaptures && movesSearched > 0 && depth <= futilityMaxDepth {
			if !SEEGe(w.pos, m, -depth*depth*15) {
				continue
			}
		}

		// History pruning: a quiet with a strongly negative history score
		// at shallow depth is unlikely to ever matter.
		if !isPV && isQuiet && depth <= 4 && movesSearched > 0 {
			if w.quietHistoryScore(ply, m) < historyPruningThreshold*depth {
				continue
			}
		}

		extension := checkExtension

		// Singular extension: if the TT move is the only move that looks
		// good by a comfortable margin, it deserves extra depth; detected
		// by excluding it and re-searching — with a key mixed through the
		// excluded move so this re-search never pollutes the full TT
		// entry for this node.
		if EnableSingularExt && depth >= singularMinDepth && m == ttMove && excluded == board.NoMove &&
			int(ttEntry.Depth) >= depth-3 && ttEntry.Flag != TTUpperBound {
			singularBeta := maxInt(FixMateScoreProbe(int(ttEntry.Score), ply)-2*depth, -MateScore)
			w.excludeMoveStack[ply] = m
			singularScore := w.alphabeta(depth/2, ply, singularBeta-1, singularBeta, prevMove, false)
			w.excludeMoveStack[ply] = board.NoMove
			if singularScore < singularBeta {
				extension++
			} else if bestScore >= beta && singularBeta >= beta {
				return singularBeta
			}
		}

		if w.isThreatExtension(depth, m) {
			extension++
		}

		w.moveStack[ply] = m
		w.movedPieceStack[ply] = w.pos.PieceAt(m.From())

		undo := w.pos.MakeMove(m)
		movesSearched++
		if isQuiet {
			quietsSearched++
		}

		newDepth := depth - 1 + extension
		var score int
		childPV := isPV && movesSearched == 1

		if movesSearched == 1 {
			score = -w.alphabeta(newDepth, ply+1, -beta, -alpha, m, childPV)
		} else {
			reduction := 0
			if isQuiet && depth >= 3 && movesSearched >= 3 {
				reduction = lmrReduction(improving, depth, movesSearched)
				if isPV {
					reduction--
				}
				reduction = clampInt(reduction, 0, newDepth-1)
			}
			score = -w.alphabeta(newDepth-reduction, ply+1, -alpha-1, -alpha, m, false)
			if score > alpha && reduction > 0 {
				score = -w.alphabeta(newDepth, ply+1, -alpha-1, -alpha, m, false)
			}
			if score > alpha && score < beta {
				score = -w.alphabeta(newDepth, ply+1, -beta, -alpha, m, true)
			}
		}

		w.pos.UnmakeMove(m, undo)

		if w.stopped() {
			return 0
		}

		if isQuiet && score <= alpha {
			failLowQuiets = append(failLowQuiets, m)
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

	if movesSearched == 0 {
		if excluded != board.NoMove {
			return origAlpha
		}
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	if bestScore > origAlpha {
		w.updateOrderingTables(ply, prevMove, prevPiece, bestMove, failLowQuiets, depth, bestScore >= beta)
	}

	if excluded == board.NoMove {
		flag := TTExact
		if bestScore >= beta {
			flag = TTLowerBound
		} else if bestScore <= origAlpha {
			flag = TTUpperBound
		}
		w.tt.Store(hashKey, depth, FixMateScoreAdd(bestScore, ply), staticEval, flag, bestMove)
		w.corrHistory.Update(w.pos, bestScore, staticEval, depth)
	}

	return bestScore
}

// updateOrderingTables rewards the move that caused a beta cutoff (or, on
// an exact score, simply improved alpha) and penalizes the quiets that
// were tried and failed, across killers/history/counter-move/continuation.
func (w *Worker) updateOrderingTables(ply int, prevMove board.Move, prevPiece board.Piece, best board.Move, failedQuiets []board.Move, depth int, cutoff bool) {
	if best == board.NoMove || best.IsCapture(w.pos) || best.IsPromotion() {
		return
	}
	bonus := depth * depth
	w.history.UpdateKillers(best, ply)
	w.history.UpdateHistory(w.pos.SideToMove, best, bonus)
	if prevMove != board.NoMove {
		w.history.UpdateCounterMove(prevMove, best, prevPiece)
	}
	movePiece := w.pos.PieceAt(best.From())
	w.updateContinuationPlanes(ply, prevMove, prevPiece, movePiece, best.To(), bonus)
	for _, m := range failedQuiets {
		if m == best {
			continue
		}
		w.history.UpdateHistory(w.pos.SideToMove, m, -bonus)
		mp := w.pos.PieceAt(m.From())
		w.updateContinuationPlanes(ply, prevMove, prevPiece, mp, m.To(), -bonus)
	}
}

// updateContinuationPlanes updates both continuation-history lookback
// planes for a move (movePiece, to) played at ply: plane 0 against the
// move that led to this node (prevMove/prevPiece, i.e. moveStack[ply-1])
// and plane 1 against the move before that (moveStack[ply-2]), matching
// the indexing quietHistoryScore reads back at the child.
func (w *Worker) updateContinuationPlanes(ply int, prevMove board.Move, prevPiece board.Piece, movePiece board.Piece, to board.Square, bonus int) {
	if prevMove != board.NoMove {
		w.history.UpdateContinuation(0, prevPiece, prevMove.To(), movePiece, to, bonus)
	}
	if ply >= 2 {
		if pm := w.moveStack[ply-2]; pm != board.NoMove {
			w.history.UpdateContinuation(1, w.movedPieceStack[ply-2], pm.To(), movePiece, to, bonus)
		}
	}
}

// isThreatExtension extends a move that walks into a position where the
// opponent's last move created a serious material threat worth resolving
// a ply deeper rather than risking a shallow horizon effect.
func (w *Worker) isThreatExtension(depth int, m board.Move) bool {
	if !EnableThreatExt || depth < threatExtensionMinDepth {
		return false
	}
	return SEEGe(w.pos, m, threatExtensionThresh) && m.IsCapture(w.pos)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
