package engine

import (
	"github.com/nilsberg/chesscore/internal/board"
)

// selectorStage names the six yield classes MoveSelector walks through in
// order. Every legal move at a node falls into exactly one stage.
type selectorStage int

const (
	stageTT selectorStage = iota
	stageGoodCaptures
	stageKillers
	stageCounter
	stageQuiets
	stageBadCaptures
	stageDone
)

// SEEGe reports whether capturing/playing m wins at least threshold
// centipawns of material by static exchange evaluation. It is a thin
// boolean wrapper over the int-valued SEE swap algorithm.
func SEEGe(pos *board.Position, m board.Move, threshold int) bool {
	return SEE(pos, m) >= threshold
}

// MoveSelector lazily yields moves at a search node in the stage order
// hash-move, good-SEE captures, killers, counter-move, history-ordered
// quiets, bad-SEE captures. It generates the full legal move list once
// (the board package exposes no separate quiets-only generator) and
// partitions it by stage at construction time rather than re-querying the
// board per stage.
type MoveSelector struct {
	pos      *board.Position
	moves    *board.MoveList
	scores   []int
	order    []int // index into moves/scores, partitioned by stage
	stageEnd [stageDone + 1]int
	cur      int
	stage    selectorStage

	ttMove      board.Move
	quietsOnly  bool // quiescence: captures/promotions/check-evasions only
	inCheck     bool
}

// NewMoveSelector builds a selector over every legal move at pos.
// quietScore, when non-nil, scores a quiet move for ordering — normally
// Worker.quietHistoryScore, butterfly history plus the continuation-history
// planes available at ply. A nil quietScore falls back to plain butterfly
// history, which is all a table-only caller (tests) has to offer.
func NewMoveSelector(pos *board.Position, ht *HistoryTables, ply int, ttMove, prevMove board.Move, prevPiece board.Piece, quietScore func(board.Move) int) *MoveSelector {
	moves := pos.GenerateLegalMoves()
	return buildSelector(pos, moves, ht, ply, ttMove, prevMove, prevPiece, false, quietScore)
}

// NewQuiescenceSelector builds a selector for quiescence search: captures
// and promotions only, unless inCheck is true, in which case every legal
// evasion is offered (quiescence must never call a checked position
// terminal just because it generated no captures).
func NewQuiescenceSelector(pos *board.Position, ht *HistoryTables, ply int, ttMove board.Move, inCheck bool, quietScore func(board.Move) int) *MoveSelector {
	var moves *board.MoveList
	if inCheck {
		moves = pos.GenerateLegalMoves()
	} else {
		moves = pos.GenerateCaptures()
	}
	sel := buildSelector(pos, moves, ht, ply, ttMove, board.NoMove, board.NoPiece, true, quietScore)
	sel.inCheck = inCheck
	return sel
}

func buildSelector(pos *board.Position, moves *board.MoveList, ht *HistoryTables, ply int, ttMove, prevMove board.Move, prevPiece board.Piece, quietsOnly bool, quietScore func(board.Move) int) *MoveSelector {
	n := moves.Len()
	sel := &MoveSelector{
		pos:        pos,
		moves:      moves,
		scores:     make([]int, n),
		order:      make([]int, n),
		ttMove:     ttMove,
		quietsOnly: quietsOnly,
	}

	killer1, killer2 := board.NoMove, board.NoMove
	var counter board.Move
	if ht != nil {
		killer1, killer2 = ht.Killers(ply)
		counter = ht.CounterMove(prevMove, prevPiece)
	}

	stageOf := make([]selectorStage, n)
	for i := 0; i < n; i++ {
		m := moves.Get(i)
		sel.order[i] = i
		switch {
		case m == ttMove:
			stageOf[i] = stageTT
			sel.scores[i] = TTMoveScore
		case m.IsCapture(pos):
			stageOf[i] = sel.scoreCapture(m, &sel.scores[i], ht)
		case m == killer1:
			stageOf[i] = stageKillers
			sel.scores[i] = KillerScore1
		case m == killer2:
			stageOf[i] = stageKillers
			sel.scores[i] = KillerScore2
		case counter != board.NoMove && m == counter:
			stageOf[i] = stageCounter
			sel.scores[i] = CounterMoveScore
		default:
			stageOf[i] = stageQuiets
			switch {
			case quietScore != nil:
				sel.scores[i] = quietScore(m)
			case ht != nil:
				sel.scores[i] = ht.HistoryScore(pos.SideToMove, m)
			}
		}
	}

	// Stable partition by stage, then descending score within each stage.
	for s := stageTT; s < stageDone; s++ {
		start := sel.stageEnd[s]
		for i := start; i < n; i++ {
			if stageOf[sel.order[i]] == s {
				sel.order[start], sel.order[i] = sel.order[i], sel.order[start]
				start++
			}
		}
		sel.stageEnd[s+1] = start
		sortOrderRange(sel.order[sel.stageEnd[s]:start], sel.scores)
	}

	return sel
}

func sortOrderRange(idx []int, scores []int) {
	for i := 0; i < len(idx)-1; i++ {
		best := i
		for j := i + 1; j < len(idx); j++ {
			if scores[idx[j]] > scores[idx[best]] {
				best = j
			}
		}
		idx[i], idx[best] = idx[best], idx[i]
	}
}

func (s *MoveSelector) scoreCapture(m board.Move, score *int, ht *HistoryTables) selectorStage {
	good := SEEGe(s.pos, m, 0)
	attackerPiece := s.pos.PieceAt(m.From())
	var victim board.PieceType
	if m.IsEnPassant() {
		victim = board.Pawn
	} else {
		victim = s.pos.PieceAt(m.To()).Type()
	}
	attacker := board.NoPieceType
	if attackerPiece != board.NoPiece {
		attacker = attackerPiece.Type()
	}
	base := GoodCaptureBase
	if !good {
		base = BadCaptureBase
	}
	mvv := 0
	if victim < board.King && attacker < board.King {
		mvv = mvvLva[victim][attacker] * 1000
	}
	capHist := 0
	if ht != nil {
		capHist = ht.CaptureHistoryScore(attackerPiece, m.To(), victim) / 4
	}
	*score = base + mvv + capHist
	if good {
		return stageGoodCaptures
	}
	return stageBadCaptures
}

// Next returns the next move in stage order, or (NoMove, false) once every
// stage is exhausted.
func (s *MoveSelector) Next() (board.Move, bool) {
	for s.stage < stageDone {
		if s.cur < s.stageEnd[s.stage+1] {
			idx := s.order[s.cur]
			s.cur++
			return s.moves.Get(idx), true
		}
		s.stage++
	}
	return board.NoMove, false
}

// Stage reports the stage of the move most recently returned by Next,
// needed by the move loop to decide which pruning rules apply (SEE/LMP
// only target quiets and bad captures, never the TT or killer moves).
func (s *MoveSelector) Stage() selectorStage {
	if s.stage >= stageDone {
		return stageDone
	}
	return s.stage
}

func (s *MoveSelector) Len() int {
	return s.moves.Len()
}
