package engine

import (
	"github.com/nilsberg/chesscore/internal/board"
	"github.com/nilsberg/chesscore/internal/tablebase"
	"github.com/nilsberg/chesscore/sfnnue"
)

// rootMoveInfo holds one root move's last-iteration score and PV.
// Worker.rootMoves is declared but not filled by the search; root ordering
// is recomputed every iteration by rescoreRootMoves.
type rootMoveInfo struct {
	move         board.Move
	score        int
	prevScore    int
	failingLow   bool
	pv           []board.Move
}

// Worker is one Lazy-SMP search thread. It owns its own position copy,
// per-node stacks and correction history, but reads and writes the shared
// transposition table, pawn table and (through HistoryTables) the
// killer/butterfly/capture/counter-move/continuation-history tables that
// the whole pool learns from together; killers are not per-worker.
type Worker struct {
	id int

	pos *board.Position

	history *HistoryTables

	nodes    uint64
	seldepth int
	tbHits   uint64
	pv       PVTable

	lastIterationScore int
	completedDepth     int

	// multiPV tracks the K best root lines, rescored every iteration.
	multiPV        int
	multipvtable   [MultiPVMax][]board.Move
	bestmovescore  [MultiPVMax]int
	rootMoves      []rootMoveInfo
	lastPV         []board.Move
	bestFailingLow bool

	// per-ply stacks
	undoStack        [MaxPly]board.UndoInfo
	staticEvalStack  [MaxPly]int
	excludeMoveStack [MaxPly]board.Move
	movedPieceStack  [MaxPly]board.Piece
	moveStack        [MaxPly]board.Move

	posHistory    []uint64
	rootPosHashes []uint64

	excludedRootMoves []board.Move

	// null-move bookkeeping: side/ply of the last null move played, so a
	// verification re-search only triggers once per genuine null line.
	nullMoveSide board.Color
	nullMovePly  int

	tt          *TranspositionTable
	pawnTable   *PawnTable
	corrHistory *CorrectionHistory
	stop        *stopState
	tb          tablebase.Prober

	useNNUE bool
	nnueNet *sfnnue.Networks
	nnueAcc *sfnnue.AccumulatorStack

	dirtyState           DirtyState
	activeIndicesBuffer  [64]int
	optimism             [2]int

	resultCh chan<- WorkerResult

	depth int
}

// WorkerResult is the per-depth report a worker sends to the guide.
type WorkerResult struct {
	WorkerID int
	Depth    int
	Score    int
	Move     board.Move
	PV       []board.Move
	Nodes    uint64
}

// NewWorker builds a worker sharing tt/pawnTable/history and the given stop
// state with the rest of the pool; its correction history is its own.
func NewWorker(id int, tt *TranspositionTable, pawnTable *PawnTable, history *HistoryTables, stop *stopState) *Worker {
	return &Worker{
		id:          id,
		history:     history,
		tt:          tt,
		pawnTable:   pawnTable,
		corrHistory: NewCorrectionHistory(),
		stop:        stop,
	}
}

func (w *Worker) initNNUE(nets *sfnnue.Networks) {
	w.nnueNet = nets
	w.nnueAcc = sfnnue.NewAccumulatorStack()
}

func (w *Worker) ID() int { return w.id }

func (w *Worker) Nodes() uint64 { return w.nodes }

func (w *Worker) SelDepth() int { return w.seldepth }

func (w *Worker) TBHits() uint64 { return w.tbHits }

// Reset clears per-search counters. History tables persist across
// iterative-deepening iterations within a search; they are cleared
// explicitly by the engine between games.
func (w *Worker) Reset() {
	w.nodes = 0
	w.seldepth = 0
	w.tbHits = 0
	w.completedDepth = 0
}

// SetRootHistory records the game's hash history for repetition detection.
func (w *Worker) SetRootHistory(hashes []uint64) {
	w.rootPosHashes = make([]uint64, len(hashes))
	copy(w.rootPosHashes, hashes)
}

func (w *Worker) SetResultChannel(ch chan<- WorkerResult) {
	w.resultCh = ch
}

// SetExcludedMoves marks moves MultiPV has already reported at the root,
// so the next slot's search skips straight past them.
func (w *Worker) SetExcludedMoves(moves []board.Move) {
	w.excludedRootMoves = moves
}

// InitSearch copies pos for this worker's exclusive use and seeds the
// repetition-detection history with the game so far.
func (w *Worker) InitSearch(pos *board.Position) {
	w.pos = pos.Copy()
	if w.nnueAcc != nil {
		w.nnueAcc.Reset()
	}
	w.posHistory = make([]uint64, 0, len(w.rootPosHashes)+MaxPly)
	w.posHistory = append(w.posHistory, w.rootPosHashes...)
	w.posHistory = append(w.posHistory, w.pos.Hash)
}

// SearchDepth runs one iterative-deepening iteration at depth within
// [alpha, beta] and reports the result over the result channel.
func (w *Worker) SearchDepth(depth, alpha, beta int) (board.Move, int) {
	w.depth = depth

	score := w.alphabeta(depth, 0, alpha, beta, board.NoMove, true)

	var bestMove board.Move
	if w.pv.length[0] > 0 {
		bestMove = w.pv.moves[0][0]
	}
	if bestMove == board.NoMove && w.stop.Load() < StopImmediately {
		moves := w.pos.GenerateLegalMoves()
		if moves.Len() > 0 {
			bestMove = moves.Get(0)
		}
	}

	if w.stop.Load() < StopImmediately {
		w.completedDepth = depth
	}

	if w.resultCh != nil && w.stop.Load() < StopImmediately {
		w.resultCh <- WorkerResult{
			WorkerID: w.id,
			Depth:    depth,
			Score:    score,
			Move:     bestMove,
			PV:       w.pv.line(0),
			Nodes:    w.nodes,
		}
	}

	return bestMove, score
}

// evaluate returns the static evaluation, NNUE when available and enabled,
// classical material/pawn-structure eval otherwise.
func (w *Worker) evaluate() int {
	if w.useNNUE && w.nnueNet != nil {
		return w.nnueEvaluate()
	}
	return EvaluateWithPawnTable(w.pos, w.pawnTable)
}

// correctedEval applies the correction-history adjustment on top of the
// static eval, clamped so a wild correction can never flip sign into a
// mate-range score.
func (w *Worker) correctedEval() int {
	raw := w.evaluate()
	corr := w.corrHistory.Get(w.pos)
	adjusted := raw + corr
	return clampInt(adjusted, -MateScore+MaxPly+1, MateScore-MaxPly-1)
}

// quietHistoryScore is RubiChess's getHistory: butterfly history plus the
// continuation-history score of however many lookback planes are available
// this deep into the search (the move just played, and the move before
// that), used both for quiet move ordering and history pruning.
func (w *Worker) quietHistoryScore(ply int, m board.Move) int {
	score := w.history.HistoryScore(w.pos.SideToMove, m)
	piece := w.pos.PieceAt(m.From())
	if ply >= 1 {
		if pm := w.moveStack[ply-1]; pm != board.NoMove {
			score += w.history.ContinuationScore(0, w.movedPieceStack[ply-1], pm.To(), piece, m.To())
		}
	}
	if ply >= 2 {
		if pm := w.moveStack[ply-2]; pm != board.NoMove {
			score += w.history.ContinuationScore(1, w.movedPieceStack[ply-2], pm.To(), piece, m.To())
		}
	}
	return score
}

func (w *Worker) stopped() bool {
	return w.stop.Load() >= StopImmediately
}

// GetPV returns the last search's principal variation.
func (w *Worker) GetPV() []board.Move {
	return w.pv.line(0)
}

func (w *Worker) isExcludedRootMove(move board.Move) bool {
	for _, excluded := range w.excludedRootMoves {
		if move == excluded {
			return true
		}
	}
	return false
}

// isDraw reports 50-move, insufficient-material or repetition draws (>=2
// occurrences of the current hash in posHistory). posHistory holds the game
// history up to the root only: positions reached inside the search are not
// recorded, so a repetition within the search line is not detected.
func (w *Worker) isDraw() bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}
	if w.pos.IsInsufficientMaterial() {
		return true
	}
	if len(w.posHistory) > 0 {
		currentHash := w.pos.Hash
		count := 0
		for _, h := range w.posHistory {
			if h == currentHash {
				count++
				if count >= 2 {
					return true
				}
			}
		}
	}
	return false
}
