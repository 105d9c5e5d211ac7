package engine

import (
	"github.com/nilsberg/chesscore/internal/board"
	"github.com/nilsberg/chesscore/internal/tablebase"
	"github.com/nilsberg/chesscore/sfnnue"
)

// WorkerPool owns every Lazy-SMP search thread, the resources they share
// (transposition table, history tables, pawn table) and the stop signal
// they all poll.
type WorkerPool struct {
	workers []*Worker
	tt      *TranspositionTable
	history *HistoryTables
	stop    stopState

	nnueNets *sfnnue.Networks
	useNNUE  bool
}

// NewWorkerPool builds a pool of n workers sharing one transposition
// table, history tables and pawn hash.
func NewWorkerPool(n int, tt *TranspositionTable) *WorkerPool {
	if n < 1 {
		n = 1
	}
	p := &WorkerPool{
		tt:      tt,
		history: NewHistoryTables(),
	}
	pawnTable := NewPawnTable(4)
	for i := 0; i < n; i++ {
		w := NewWorker(i, tt, pawnTable, p.history, &p.stop)
		p.workers = append(p.workers, w)
	}
	return p
}

// Resize grows or shrinks the pool to n workers, preserving the shared
// tables so learned history survives a Threads change mid-game.
func (p *WorkerPool) Resize(n int) {
	if n < 1 {
		n = 1
	}
	if n == len(p.workers) {
		return
	}
	pawnTable := NewPawnTable(4)
	if len(p.workers) > 0 {
		pawnTable = p.workers[0].pawnTable
	}
	workers := make([]*Worker, n)
	for i := 0; i < n; i++ {
		if i < len(p.workers) {
			workers[i] = p.workers[i]
			workers[i].id = i
		} else {
			workers[i] = NewWorker(i, p.tt, pawnTable, p.history, &p.stop)
			if p.useNNUE {
				workers[i].useNNUE = true
				workers[i].initNNUE(p.nnueNets)
			}
		}
	}
	p.workers = workers
}

// SetSyzygyProber installs a Syzygy/Lichess WDL prober shared by every
// worker. Workers consult it only at non-root nodes with at most MaxPieces
// pieces and a zero half-move clock.
func (p *WorkerPool) SetSyzygyProber(tb tablebase.Prober) {
	for _, w := range p.workers {
		w.tb = tb
	}
}

func (p *WorkerPool) SetNNUE(nets *sfnnue.Networks) {
	p.nnueNets = nets
	p.useNNUE = nets != nil
	for _, w := range p.workers {
		w.useNNUE = p.useNNUE
		if p.useNNUE {
			w.initNNUE(nets)
		}
	}
}

func (p *WorkerPool) Size() int { return len(p.workers) }

func (p *WorkerPool) Main() *Worker { return p.workers[0] }

func (p *WorkerPool) Workers() []*Worker { return p.workers }

// Reset prepares every worker for a new search: it clears the shared stop
// state, resets each worker and gives it the game's hash history and a copy
// of pos. Lazy-SMP depth skipping is applied per iteration by skipDepth.
func (p *WorkerPool) Reset(pos *board.Position, rootHistory []uint64) {
	p.stop.Reset()
	for _, w := range p.workers {
		w.Reset()
		w.SetRootHistory(rootHistory)
		w.InitSearch(pos)
	}
}

func (p *WorkerPool) ClearHistory() {
	p.history.Clear()
}

func (p *WorkerPool) NodeCount() uint64 {
	var total uint64
	for _, w := range p.workers {
		total += w.Nodes()
	}
	return total
}

func (p *WorkerPool) MaxSelDepth() int {
	max := 0
	for _, w := range p.workers {
		if w.SelDepth() > max {
			max = w.SelDepth()
		}
	}
	return max
}

func (p *WorkerPool) TBHits() uint64 {
	var total uint64
	for _, w := range p.workers {
		total += w.TBHits()
	}
	return total
}

// skipDepth reports the depth a helper thread (index i, 0 is main and
// never skips) should search at this iteration, implementing the
// Lazy-SMP de-synchronisation schedule.
func skipDepth(workerIndex, iterationDepth int) int {
	if workerIndex == 0 {
		return iterationDepth
	}
	cycle := workerIndex % len(SkipDepths)
	if (iterationDepth+cycle)%SkipDepths[cycle] == 0 {
		return iterationDepth + SkipSize[cycle]
	}
	return iterationDepth
}
