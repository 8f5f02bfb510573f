package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/shogiplay/internal/board"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
	MultiPV  int // 1-based line number
}

// Result is the outcome of a finished search.
type Result struct {
	BestMove   board.Move // NoMove when the side to move has no legal move
	PonderMove board.Move
	Score      int
	Depth      int
	Nodes      uint64
	PV         []board.Move
	Declare    bool // the side to move wins by entering-king declaration
}

// Engine is the shogi AI engine. It owns the shared transposition table and
// runs one Worker per thread in lazy SMP.
type Engine struct {
	mu sync.Mutex

	tt      *TranspositionTable
	tm      *TimeManager
	workers []*Worker
	factory EvaluatorFactory
	threads int

	declaration bool
	multiPV     int

	stopFlag atomic.Bool
	stopCh   chan struct{}
	stopOnce *sync.Once
	hitCh    chan struct{}
	hitOnce  *sync.Once

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new engine with the given transposition table size in
// MB and number of search threads. No evaluator is set.
func NewEngine(ttSizeMB, threads int) *Engine {
	e := &Engine{
		tt:      NewTranspositionTable(ttSizeMB),
		tm:      NewTimeManager(DefaultTimeOptions),
		threads: max(threads, 1),
		multiPV: 1,
	}
	return e
}

// SetEvaluator installs the evaluator factory and rebuilds the workers.
func (e *Engine) SetEvaluator(f EvaluatorFactory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factory = f
	e.workers = nil
}

// HasEvaluator reports whether an evaluator has been installed.
func (e *Engine) HasEvaluator() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.factory != nil
}

// SetThreads sets the number of search threads.
func (e *Engine) SetThreads(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n = max(n, 1); n != e.threads {
		e.threads = n
		e.workers = nil
	}
}

// Threads returns the number of search threads.
func (e *Engine) Threads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threads
}

// ResizeHash reallocates the transposition table.
func (e *Engine) ResizeHash(sizeMB int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Resize(sizeMB)
}

// SetTTHorizon sets how many generations a TT entry stays usable.
func (e *Engine) SetTTHorizon(generations int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.SetHorizon(generations)
}

// SetTimeOptions replaces the network delay and minimum thinking time.
func (e *Engine) SetTimeOptions(opts TimeOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tm.SetOptions(opts)
}

// SetDeclarationRule enables the entering-king declaration win.
func (e *Engine) SetDeclarationRule(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.declaration = on
}

// MaxMultiPV bounds the MultiPV option.
const MaxMultiPV = 500

// SetMultiPV sets how many best lines the main worker reports per depth.
func (e *Engine) SetMultiPV(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.multiPV = min(max(n, 1), MaxMultiPV)
}

// NewGame clears the transposition table and every worker's history.
func (e *Engine) NewGame() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tt.Clear()
	for _, w := range e.workers {
		w.Clear()
	}
}

// Clear is an alias of NewGame.
func (e *Engine) Clear() {
	e.NewGame()
}

// Stop ends the running search, if any. The search returns the best move
// found so far.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
	e.mu.Lock()
	ch, once := e.stopCh, e.stopOnce
	e.mu.Unlock()
	if once != nil {
		once.Do(func() { close(ch) })
	}
}

// PonderHit puts a pondering search on the clock.
func (e *Engine) PonderHit() {
	e.tm.PonderHit()
	e.mu.Lock()
	ch, once := e.hitCh, e.hitOnce
	e.mu.Unlock()
	if once != nil {
		once.Do(func() { close(ch) })
	}
}

// HashFull returns the permille of the transposition table in use.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// Perft counts the leaf nodes of the legal move tree to depth.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return pos.Copy().Perft(depth)
}

func (e *Engine) ensureWorkers() {
	if len(e.workers) == e.threads {
		return
	}
	e.workers = make([]*Worker, e.threads)
	for i := range e.workers {
		e.workers[i] = NewWorker(i, e.tt, e.factory(), &e.stopFlag)
	}
}

// Go searches pos under limits until a limit is reached, Stop is called or
// ctx is cancelled. It blocks until every worker has returned. An infinite
// or pondering search that finishes early waits for Stop (or PonderHit)
// before returning.
func (e *Engine) Go(ctx context.Context, pos *board.Position, limits Limits) (Result, error) {
	e.mu.Lock()
	if e.factory == nil {
		e.mu.Unlock()
		return Result{}, ErrNoEvaluator
	}
	e.ensureWorkers()
	e.stopFlag.Store(false)
	stopCh := make(chan struct{})
	e.stopCh, e.stopOnce = stopCh, &sync.Once{}
	hitCh := make(chan struct{})
	e.hitCh, e.hitOnce = hitCh, &sync.Once{}
	workers := e.workers
	declaration := e.declaration
	multiPV := e.multiPV
	e.mu.Unlock()

	if declaration && pos.DeclarationWin() {
		return Result{Declare: true}, nil
	}

	var ml board.MoveList
	pos.GenerateLegal(&ml)
	if ml.Len() == 0 {
		return Result{Score: -MateScore}, nil
	}

	e.tt.NewSearch()
	e.tm.Init(limits, pos.SideToMove, pos.Ply, ml.Len())
	log.Debug().
		Int("threads", len(workers)).
		Int("moves", ml.Len()).
		Dur("optimum", e.tm.OptimumTime()).
		Dur("maximum", e.tm.MaximumTime()).
		Msg("search started")

	maxDepth := MaxPly - 1
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, maxDepth)
	}
	if ml.Len() == 1 && !limits.Infinite && limits.Mate == 0 {
		maxDepth = min(maxDepth, singleMoveDepth)
	}

	for _, w := range workers {
		w.declaration = declaration
		w.InitSearch(pos, ml.Slice())
		w.onPoll = nil
	}
	main := workers[0]
	main.multiPV = multiPV
	main.onPoll = func() {
		if ctx.Err() != nil || e.tm.Exceeded(e.tm.Elapsed(), e.nodes(workers)) {
			e.stopFlag.Store(true)
		}
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer e.stopFlag.Store(true)
		main.iterate(maxDepth, e.iterationDone(limits, multiPV, workers))
		return nil
	})
	for _, w := range workers[1:] {
		g.Go(func() error {
			w.iterate(maxDepth, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	// USI forbids answering an infinite or ponder search before stop or
	// ponderhit.
	if limits.Infinite || limits.Ponder {
		if !limits.Ponder {
			hitCh = nil
		}
		select {
		case <-stopCh:
		case <-hitCh:
		case <-ctx.Done():
		}
	}

	best := e.pickBest(workers)
	res := Result{
		BestMove: best.bestMove,
		Score:    best.bestScore,
		Depth:    best.completedDepth,
		Nodes:    e.nodes(workers),
		PV:       best.bestPV,
	}
	if len(res.PV) == 0 {
		res.PV = []board.Move{res.BestMove}
	}
	if len(res.PV) > 1 {
		res.PonderMove = res.PV[1]
	}

	log.Debug().
		Str("bestmove", res.BestMove.String()).
		Int("score", res.Score).
		Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).
		Dur("elapsed", e.tm.Elapsed()).
		Msg("search finished")
	return res, nil
}

// iterationDone returns the main worker's per-iteration hook: report info,
// track best-move stability and decide whether to start another depth.
func (e *Engine) iterationDone(limits Limits, multiPV int, workers []*Worker) func(IterationResult) bool {
	var (
		lastMove  board.Move
		lastScore = ValueNone
		stability int
		changes   []bool
	)
	return func(it IterationResult) bool {
		elapsed := e.tm.Elapsed()
		nodes := e.nodes(workers)
		if e.OnInfo != nil {
			hashFull := e.tt.HashFull()
			for i, rm := range it.Lines {
				e.OnInfo(SearchInfo{
					Depth:    it.Depth,
					SelDepth: max(it.SelDepth, rm.SelDepth),
					Score:    rm.Score,
					Nodes:    nodes,
					Time:     elapsed,
					PV:       rm.PV,
					HashFull: hashFull,
					MultiPV:  i + 1,
				})
			}
		}

		changed := lastMove != board.NoMove && it.Move != lastMove
		if changed {
			stability = 0
		} else {
			stability++
		}
		changes = append(changes, changed)
		if len(changes) > 4 {
			changes = changes[1:]
		}
		n := 0
		for _, c := range changes {
			if c {
				n++
			}
		}
		e.tm.AdjustForInstability(n)
		if lastScore != ValueNone {
			e.tm.AdjustForFallingEval(lastScore - it.Score)
		}
		lastMove, lastScore = it.Move, it.Score

		if limits.Mate > 0 {
			// A mate in N moves is at most 2N plies away.
			return multiPV == 1 && it.Score >= MateInMaxPly && MateScore-it.Score <= 2*min(limits.Mate, MaxPly)
		}
		if limits.Infinite {
			return false
		}
		// A forced mate found with room to spare will not change.
		if multiPV == 1 && isMateScore(it.Score) && it.Depth >= 2*(MateScore-abs(it.Score)) && !limits.Ponder {
			return true
		}
		return e.tm.ShouldStop(elapsed, nodes, stability)
	}
}

// pickBest prefers the main worker but takes a helper whose completed search
// is deeper and scores higher.
func (e *Engine) pickBest(workers []*Worker) *Worker {
	best := workers[0]
	for _, w := range workers[1:] {
		if w.completedDepth > best.completedDepth && w.bestScore > best.bestScore &&
			w.bestMove != board.NoMove {
			best = w
		}
	}
	return best
}

func (e *Engine) nodes(workers []*Worker) uint64 {
	var n uint64
	for _, w := range workers {
		n += w.Nodes()
	}
	return n
}

// ScoreToUSI formats a score as the USI "cp N" or "mate N" fragment, the
// mate distance counted in plies.
func ScoreToUSI(score int) string {
	switch {
	case score >= MateInMaxPly:
		return fmt.Sprintf("mate %d", MateScore-score)
	case score <= -MateInMaxPly:
		return fmt.Sprintf("mate -%d", MateScore+score)
	}
	return fmt.Sprintf("cp %d", score)
}
