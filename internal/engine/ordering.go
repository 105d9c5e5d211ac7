package engine

import (
	"github.com/nilsberg/chesscore/internal/board"
)

// Move-selector scoring bands. The TT move, good captures, killers and
// counter-moves get fixed offsets above the history range of plain quiets,
// and bad captures sit below it, so MoveSelector's stages never need to
// re-sort across bands.
const (
	TTMoveScore     = 10_000_000
	GoodCaptureBase = 1_000_000
	KillerScore1    = 900_000
	KillerScore2    = 800_000
	CounterMoveScore = 750_000
	BadCaptureBase  = -100_000
)

// mvvLva[victim][attacker]: higher is searched first.
var mvvLva = [6][6]int{
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

// historyGravityLimit clamps the bonus fed into the gravity update; values
// beyond it saturate rather than overshoot the table's own bounds.
const historyGravityLimit = 256

// gravityUpdate is RubiChess's history-update formula: each update adds
// `32*bonus` and subtracts `v*|bonus|/256`, so entries settle toward
// +-8192 and self-limit instead of needing a periodic halving pass.
func gravityUpdate(table *int16, bonus int) {
	bonus = clampInt(bonus, -historyGravityLimit, historyGravityLimit)
	v := int(*table)
	delta := 32*bonus - v*abs(bonus)/256
	v += delta
	v = clampInt(v, -32768, 32767)
	*table = int16(v)
}

// continuationPlies is the number of lookback distances the continuation
// history tracks: the move just played (plane 0) and the move before that
// (plane 1), matching RubiChess's CMPLIES.
const continuationPlies = 2

// HistoryTables holds every search-order learning table shared by a
// worker across the whole search: butterfly (quiet) history, capture
// history, killer pairs, counter-moves, and one continuation-history table
// per lookback plane, each indexed by the pieces/squares of moves played
// that many plies ago.
type HistoryTables struct {
	killers [MaxPly][2]board.Move

	// butterfly history, indexed [color][from][to]
	history [2][64][64]int16

	// capture history, indexed [attackerPiece][toSquare][capturedType]
	captureHistory [12][64][6]int16

	counterMoves [12][64]board.Move

	// continuation history, indexed [plane][prevPiece][prevTo][piece][to].
	continuation [continuationPlies][12][64][12][64]int16
}

func NewHistoryTables() *HistoryTables {
	return &HistoryTables{}
}

// Clear resets killers, counter-moves and every history table to zero,
// called once per new game (not per search, so learning persists across
// iterative-deepening iterations within one search).
func (h *HistoryTables) Clear() {
	for i := range h.killers {
		h.killers[i][0] = board.NoMove
		h.killers[i][1] = board.NoMove
	}
	for c := range h.history {
		for i := range h.history[c] {
			for j := range h.history[c][i] {
				h.history[c][i][j] = 0
			}
		}
	}
	for i := range h.captureHistory {
		for j := range h.captureHistory[i] {
			for k := range h.captureHistory[i][j] {
				h.captureHistory[i][j][k] = 0
			}
		}
	}
	for i := range h.counterMoves {
		for j := range h.counterMoves[i] {
			h.counterMoves[i][j] = board.NoMove
		}
	}
	for p := range h.continuation {
		for i := range h.continuation[p] {
			for j := range h.continuation[p][i] {
				for k := range h.continuation[p][i][j] {
					for l := range h.continuation[p][i][j][k] {
						h.continuation[p][i][j][k][l] = 0
					}
				}
			}
		}
	}
}

func (h *HistoryTables) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || h.killers[ply][0] == m {
		return
	}
	h.killers[ply][1] = h.killers[ply][0]
	h.killers[ply][0] = m
}

func (h *HistoryTables) Killers(ply int) (board.Move, board.Move) {
	return h.killers[ply][0], h.killers[ply][1]
}

func (h *HistoryTables) UpdateHistory(side board.Color, m board.Move, bonus int) {
	gravityUpdate(&h.history[side][m.From()][m.To()], bonus)
}

func (h *HistoryTables) HistoryScore(side board.Color, m board.Move) int {
	return int(h.history[side][m.From()][m.To()])
}

func (h *HistoryTables) UpdateCaptureHistory(attacker board.Piece, to board.Square, victim board.PieceType, bonus int) {
	if attacker == board.NoPiece || victim >= board.King {
		return
	}
	gravityUpdate(&h.captureHistory[attacker][to][victim], bonus)
}

func (h *HistoryTables) CaptureHistoryScore(attacker board.Piece, to board.Square, victim board.PieceType) int {
	if attacker == board.NoPiece || victim >= board.King {
		return 0
	}
	return int(h.captureHistory[attacker][to][victim])
}

func (h *HistoryTables) UpdateCounterMove(prevMove, counter board.Move, prevPiece board.Piece) {
	if prevMove == board.NoMove || prevPiece == board.NoPiece {
		return
	}
	h.counterMoves[prevPiece][prevMove.To()] = counter
}

func (h *HistoryTables) CounterMove(prevMove board.Move, prevPiece board.Piece) board.Move {
	if prevMove == board.NoMove || prevPiece == board.NoPiece {
		return board.NoMove
	}
	return h.counterMoves[prevPiece][prevMove.To()]
}

// continuationPtr returns the slot for (movePiece, moveTo) continuing from a
// move played by prevPiece landing on prevTo, on lookback plane 0 (the move
// just played) or 1 (the move before that).
func (h *HistoryTables) continuationPtr(plane int, prevPiece board.Piece, prevTo board.Square, piece board.Piece, to board.Square) *int16 {
	return &h.continuation[plane][prevPiece][prevTo][piece][to]
}

func (h *HistoryTables) UpdateContinuation(plane int, prevPiece board.Piece, prevTo board.Square, piece board.Piece, to board.Square, bonus int) {
	if prevPiece == board.NoPiece || piece == board.NoPiece {
		return
	}
	gravityUpdate(h.continuationPtr(plane, prevPiece, prevTo, piece, to), bonus)
}

func (h *HistoryTables) ContinuationScore(plane int, prevPiece board.Piece, prevTo board.Square, piece board.Piece, to board.Square) int {
	if prevPiece == board.NoPiece || piece == board.NoPiece {
		return 0
	}
	return int(*h.continuationPtr(plane, prevPiece, prevTo, piece, to))
}

// SortMoves sorts a move list by score, descending.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}

// PickMove moves the highest-scoring remaining move (from index onward)
// into position index, for lazy incremental sorting.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}
