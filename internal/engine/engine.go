package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nilsberg/chesscore/internal/board"
	"github.com/nilsberg/chesscore/internal/tablebase"
	"github.com/nilsberg/chesscore/sfnnue"
)

// SearchInfo is one iteration's worth of progress, reported through
// Engine.OnInfo the way the UCI layer turns it into an "info" line.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int
	TBHits   uint64
	MultiPV  int // 1-based slot, for MultiPV reporting
}

// SearchLimits specifies constraints on a search; it carries both the
// UCI "go" clock parameters and the simpler fixed-depth/fixed-time modes
// used by Engine.Search for non-UCI callers (tests, the difficulty presets).
type SearchLimits struct {
	Depth    int
	Nodes    uint64
	MoveTime time.Duration
	Infinite bool
	Ponder   bool

	Time         [2]time.Duration
	Inc          [2]time.Duration
	MovesToGo    int
	MoveOverhead time.Duration

	MultiPV int
}

// Difficulty is a coarse, non-UCI search-strength preset.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

var DifficultySettings = map[Difficulty]SearchLimits{
	Easy:   {Depth: 3, MoveTime: 500 * time.Millisecond},
	Medium: {Depth: 5, MoveTime: 2 * time.Second},
	Hard:   {Depth: 7, MoveTime: 5 * time.Second},
}

// Engine is the UCI-facing facade over the worker pool: it owns the shared
// transposition table, wires the search guide, and exposes the option
// surface (Hash/Threads/MultiPV/Ponder/SyzygyPath/...) spec §6 names.
type Engine struct {
	pool  *WorkerPool
	tt    *TranspositionTable
	guide *SearchGuide

	difficulty Difficulty
	multiPV    int
	threads    int

	tb tablebase.Prober

	rootHistory      []uint64
	useNNUE          bool
	syzygyProbeDepth int

	OnInfo func(SearchInfo)
}

// NewEngine creates an engine with a tt of ttSizeMB megabytes and a
// single search thread; call SetThreads to grow the pool.
func NewEngine(ttSizeMB int) *Engine {
	tt := NewTranspositionTable(ttSizeMB)
	pool := NewWorkerPool(1, tt)
	e := &Engine{
		pool:       pool,
		tt:         tt,
		guide:      NewSearchGuide(pool),
		difficulty: Medium,
		multiPV:    1,
		threads:    1,
		tb:         tablebase.NoopProber{},
	}
	pool.SetSyzygyProber(e.tb)
	return e
}

func (e *Engine) SetDifficulty(d Difficulty) {
	e.difficulty = d
}

// SetThreads resizes the worker pool. Valid any time between searches.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.threads = n
	e.pool.Resize(n)
}

// SetHashSize rebuilds the transposition table at the new size, dropping
// all cached entries.
func (e *Engine) SetHashSize(mb int) {
	e.tt = NewTranspositionTable(mb)
	e.pool = NewWorkerPool(e.threads, e.tt)
	e.guide = NewSearchGuide(e.pool)
}

func (e *Engine) SetMultiPV(k int) {
	if k < 1 {
		k = 1
	}
	if k > MultiPVMax {
		k = MultiPVMax
	}
	e.multiPV = k
}

func (e *Engine) SetSyzygyProber(tb tablebase.Prober) {
	e.tb = tb
	e.pool.SetSyzygyProber(tb)
}

func (e *Engine) SetNNUE(nets *sfnnue.Networks) {
	e.pool.SetNNUE(nets)
}

// SetPositionHistory records the game's move history (hashes) so the
// worker pool can detect repetition through positions played before this
// search started, not just within it.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootHistory = make([]uint64, len(hashes))
	copy(e.rootHistory, hashes)
}

func (e *Engine) HasNNUE() bool {
	return e.useNNUE
}

// LoadNNUE reads the big/small network files and installs them on every
// worker, which switches the workers to NNUE evaluation; it does not set the
// engine's own flag reported by HasNNUE, see SetUseNNUE.
func (e *Engine) LoadNNUE(bigPath, smallPath string) error {
	nets, err := sfnnue.LoadNetworks(bigPath, smallPath)
	if err != nil {
		return err
	}
	e.pool.SetNNUE(nets)
	return nil
}

func (e *Engine) SetUseNNUE(enabled bool) {
	e.useNNUE = enabled
	if !enabled {
		e.pool.SetNNUE(nil)
	}
}

func (e *Engine) SetSyzygyProbeDepth(depth int) {
	e.syzygyProbeDepth = depth
}

// SetTablebase is an alias of SetSyzygyProber kept for the UCI layer's
// naming of the "SyzygyPath" option handler.
func (e *Engine) SetTablebase(tb tablebase.Prober) {
	e.SetSyzygyProber(tb)
}

// Search finds the best move using the current difficulty preset.
func (e *Engine) Search(pos *board.Position) board.Move {
	limits := DifficultySettings[e.difficulty]
	return e.SearchWithLimits(pos, limits)
}

// SearchWithLimits runs the guide to completion and returns the best move.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	e.guide.OnInfo = e.OnInfo
	log.Debug().Int("threads", e.threads).Msg("engine: starting search")
	return e.guide.Run(context.Background(), pos, limits, e.rootHistory)
}

// SearchMultiPV runs k (limits.MultiPV, defaulting to e.multiPV) parallel
// root lines at a fixed depth/time budget and returns them best-first.
func (e *Engine) SearchMultiPV(pos *board.Position, limits SearchLimits) []RootSearchResult {
	k := limits.MultiPV
	if k < 1 {
		k = e.multiPV
	}
	if k < 1 {
		k = 1
	}

	e.pool.Reset(pos, e.rootHistory)
	e.tt.NewSearch()
	main := e.pool.Main()

	maxDepth := MaxPly
	if limits.Depth > 0 {
		maxDepth = limits.Depth
	}

	deadline := time.Time{}
	if limits.MoveTime > 0 {
		deadline = time.Now().Add(limits.MoveTime)
	}

	var results []RootSearchResult
	for depth := 1; depth <= maxDepth; depth++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		if main.stopped() {
			break
		}
		r := multiPVSlots(main, pos, depth, k)
		if len(r) > 0 {
			results = r
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
	}
	return results
}

func (e *Engine) Stop() {
	e.guide.Stop()
}

// Clear resets the transposition table and every learned ordering table,
// leaving the pool sized as-is.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.pool.ClearHistory()
}

// Perft walks the legal-move tree to depth, used as a UCI debug
// subcommand to exercise move generation rather than as a search
// deliverable.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		move := moves.Get(i)
		undo := pos.MakeMove(move)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(move, undo)
	}
	return nodes
}

func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// ScoreToString renders a centipawn/mate score the way UCI "info string"
// diagnostics and the CLI's human-readable output do.
func ScoreToString(score int) string {
	if score > MateScore-100 {
		mateIn := (MateScore - score + 1) / 2
		return "Mate in " + itoa(mateIn)
	}
	if score < -MateScore+100 {
		mateIn := (MateScore + score + 1) / 2
		return "Mated in " + itoa(mateIn)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	pawns := score / 100
	centipawns := score % 100
	return sign + itoa(pawns) + "." + itoa(centipawns)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	s := ""
	for n > 0 {
		s = string('0'+byte(n%10)) + s
		n /= 10
	}
	return s
}
