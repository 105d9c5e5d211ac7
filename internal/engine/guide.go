package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nilsberg/chesscore/internal/board"
	"github.com/rs/zerolog/log"
)

// SearchGuide drives one "go" command end to end: it runs iterative
// deepening on the pool's main thread while helper threads search their
// own Lazy-SMP-skipped depths, polls the stop level at a fixed cadence so
// a UCI "stop"/time-out is noticed promptly, and picks the best thread's
// result once everyone has returned.
type SearchGuide struct {
	pool *WorkerPool
	tm   *TimeManager

	multiPV int
	lastPV  []RootSearchResult

	selectedMove  board.Move
	selectedScore int
	selectedPV    []board.Move

	OnInfo func(SearchInfo)
}

func NewSearchGuide(pool *WorkerPool) *SearchGuide {
	return &SearchGuide{pool: pool}
}

// pollInterval matches the teacher's original single-flag check cadence,
// fine-grained enough that a "stop" feels instant without burning CPU on
// a tight spin loop.
const pollInterval = 10 * time.Millisecond

// Run searches pos under limits and returns the best move found, reporting
// SearchInfo through OnInfo after every completed iteration of the main
// thread.
func (g *SearchGuide) Run(ctx context.Context, pos *board.Position, limits SearchLimits, rootHistory []uint64) board.Move {
	g.pool.Reset(pos, rootHistory)
	g.pool.tt.NewSearch()

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	g.tm = NewTimeManager(limits, pos.SideToMove, pos, g.pool.Size())
	g.multiPV = limits.MultiPV
	if g.multiPV < 1 {
		g.multiPV = 1
	}
	g.lastPV = nil

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	go g.pollDeadline(pollCtx)

	var bestMove board.Move
	var bestScore int
	var hasScore bool
	startTime := time.Now()

	main := g.pool.Main()

	for depth := 1; depth <= maxDepth; depth++ {
		if g.pool.stop.Load() >= StopImmediately {
			break
		}

		g.runIteration(ctx, depth, bestScore, hasScore)

		if main.stopped() && depth > 1 {
			break
		}

		move := board.NoMove
		score := 0
		pv := g.selectedPV
		if len(g.lastPV) > 0 {
			move = g.lastPV[0].Move
			score = g.lastPV[0].Score
			pv = g.lastPV[0].PV
		} else {
			move = g.selectedMove
			score = g.selectedScore
		}
		if move != board.NoMove {
			g.tm.NotifyIteration(depth == 1 || move != bestMove)
			bestMove = move
			bestScore = score
			hasScore = true
		}

		if g.OnInfo != nil {
			if len(g.lastPV) > 0 {
				for slot, r := range g.lastPV {
					g.OnInfo(SearchInfo{
						Depth:    depth,
						Score:    r.Score,
						Nodes:    g.pool.NodeCount(),
						Time:     time.Since(startTime),
						PV:       r.PV,
						HashFull: g.pool.tt.HashFull(),
						MultiPV:  slot + 1,
					})
				}
			} else {
				g.OnInfo(SearchInfo{
					Depth:    depth,
					Score:    bestScore,
					Nodes:    g.pool.NodeCount(),
					Time:     time.Since(startTime),
					PV:       pv,
					HashFull: g.pool.tt.HashFull(),
					MultiPV:  1,
				})
			}
		}

		if abs(bestScore) > MateScore-100 {
			g.pool.stop.Raise(StopSoon)
		}

		if g.tm.ShouldStopIteration(time.Since(startTime), depth) {
			break
		}
	}

	g.pool.stop.Raise(Stopped)
	return bestMove
}

// runIteration searches one depth across the whole pool, the main thread
// through searchRootDepth (an aspiration window around prevScore from depth
// 5 on) and helpers with a full window at their Lazy-SMP-skipped depth, and
// blocks until all of them return or the stop level rises.
func (g *SearchGuide) runIteration(ctx context.Context, depth int, prevScore int, hasPrevScore bool) {
	eg, _ := errgroup.WithContext(ctx)
	main := g.pool.Main()

	for i, w := range g.pool.Workers() {
		worker := w
		workerIdx := i
		eg.Go(func() error {
			d := skipDepth(workerIdx, depth)
			if worker == main {
				if g.multiPV > 1 {
					results := multiPVSlots(worker, worker.pos, d, g.multiPV)
					if len(results) > 0 {
						g.lastPV = results
						worker.lastIterationScore = results[0].Score
					}
				} else {
					move, score := searchRootDepth(worker, worker.pos, d, prevScore, hasPrevScore)
					worker.lastIterationScore = score
					_ = move
				}
			} else {
				worker.SearchDepth(d, -Infinity, Infinity)
			}
			return nil
		})
	}
	_ = eg.Wait()

	if g.multiPV <= 1 {
		g.selectBestWorker()
	}
}

// selectBestWorker picks, among the pool's workers, the one that reached
// the highest completed depth this iteration, breaking ties by root score;
// Lazy-SMP helper threads search different skipped depths and move orders,
// so the deepest-and-best line is not always the main thread's.
func (g *SearchGuide) selectBestWorker() {
	workers := g.pool.Workers()
	best := workers[0]
	for _, w := range workers[1:] {
		switch {
		case w.completedDepth > best.completedDepth:
			best = w
		case w.completedDepth == best.completedDepth && w.lastIterationScore > best.lastIterationScore:
			best = w
		}
	}

	g.selectedMove = board.NoMove
	if best.pv.length[0] > 0 {
		g.selectedMove = best.pv.moves[0][0]
	}
	g.selectedScore = best.lastIterationScore
	g.selectedPV = best.GetPV()
}

// pollDeadline raises the pool's stop level once the time manager's hard
// deadline passes, independent of whether any worker happens to check in
// between node-count polls.
func (g *SearchGuide) pollDeadline(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if g.tm == nil {
				continue
			}
			elapsed := time.Since(start)
			if g.tm.PastMaximum(elapsed) {
				g.pool.stop.Raise(StopImmediately)
				log.Debug().Dur("elapsed", elapsed).Msg("search guide: hard deadline reached")
				return
			}
			if g.tm.PastOptimum(elapsed) {
				g.pool.stop.Raise(StopSoon)
			}
		}
	}
}

// Stop requests the current search unwind as soon as workers next poll.
func (g *SearchGuide) Stop() {
	g.pool.stop.Raise(StopImmediately)
}
