package engine

import (
	"sync/atomic"
	"time"

	"github.com/hailam/shogiplay/internal/board"
)

// Limits contains USI search limits. Clock fields are indexed by color.
type Limits struct {
	Time      [2]time.Duration // btime, wtime (remaining time for each color)
	Inc       [2]time.Duration // binc, winc (increment per move)
	Byoyomi   time.Duration    // time per move once the main clock is spent
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move (overrides other time controls)
	Depth     int              // maximum search depth
	Nodes     uint64           // maximum nodes to search
	Infinite  bool             // search until stopped
	Ponder    bool             // ponder mode, clock starts at ponderhit
	Mate      int              // go mate: moves to look for a mate in, no clock
}

// TimeOptions are the engine options that shape time allocation.
type TimeOptions struct {
	NetworkDelay        time.Duration // subtracted from every budget to absorb transport lag
	MinimumThinkingTime time.Duration // no move is played faster than this
}

// DefaultTimeOptions matches the USI option defaults.
var DefaultTimeOptions = TimeOptions{
	NetworkDelay:        120 * time.Millisecond,
	MinimumThinkingTime: 2 * time.Second,
}

const (
	// SingleMoveTime caps the search when the root has one legal move.
	SingleMoveTime = 500 * time.Millisecond
	// singleMoveDepth is deep enough to find a ponder move.
	singleMoveDepth = 4

	minBudget = 10 * time.Millisecond
	unlimited = time.Duration(1<<63 - 1)
)

// TimeManager handles time allocation for searches.
type TimeManager struct {
	opts TimeOptions

	optimumTime time.Duration // Target time for this move
	maximumTime time.Duration // Maximum time allowed
	nodeLimit   uint64

	startNanos atomic.Int64
	pondering  atomic.Bool

	instability int // permille extension from best-move changes
	falling     int // permille extension from a dropping score
}

// NewTimeManager creates a new time manager.
func NewTimeManager(opts TimeOptions) *TimeManager {
	return &TimeManager{opts: opts}
}

// SetOptions replaces the time options used by the next Init.
func (tm *TimeManager) SetOptions(opts TimeOptions) {
	tm.opts = opts
}

// Init computes the budget for a new search. ply is the game ply and
// rootMoves the number of legal root moves.
func (tm *TimeManager) Init(limits Limits, us board.Color, ply, rootMoves int) {
	tm.startNanos.Store(time.Now().UnixNano())
	tm.pondering.Store(limits.Ponder)
	tm.nodeLimit = limits.Nodes
	tm.instability, tm.falling = 1000, 1000

	timeLeft := limits.Time[us]
	inc := limits.Inc[us]
	byoyomi := limits.Byoyomi

	switch {
	case limits.Infinite, limits.Mate > 0:
		tm.optimumTime, tm.maximumTime = unlimited, unlimited
		return
	case rootMoves == 1:
		// Reply at once whatever the limit kind; MinimumThinkingTime does
		// not apply.
		t := SingleMoveTime
		if limits.MoveTime > 0 {
			t = min(t, limits.MoveTime-tm.opts.NetworkDelay)
		} else if timeLeft > 0 || byoyomi > 0 {
			t = min(t, timeLeft+byoyomi-tm.opts.NetworkDelay)
		}
		t = max(t, minBudget)
		tm.optimumTime, tm.maximumTime = t, t
		return
	case limits.MoveTime > 0:
		t := max(limits.MoveTime-tm.opts.NetworkDelay, minBudget)
		tm.optimumTime, tm.maximumTime = t, t
		return
	case timeLeft == 0 && byoyomi == 0 && inc == 0:
		// Depth or node limited only.
		tm.optimumTime, tm.maximumTime = unlimited, unlimited
		return
	}

	// The hard ceiling: what is on the clock plus one byoyomi period.
	available := timeLeft + byoyomi - tm.opts.NetworkDelay
	available = max(available, minBudget)

	// Estimate moves to go
	mtg := limits.MovesToGo
	if mtg == 0 {
		// Sudden death: estimate moves remaining based on game phase
		mtg = max(10, min(50-ply/4, 50))
	}

	baseTime := timeLeft/time.Duration(mtg) + inc*9/10
	tm.optimumTime = baseTime

	// Slight reduction for very early moves (give some buffer)
	if ply < 8 {
		tm.optimumTime = baseTime * 85 / 100
	}

	// Maximum time: 5x optimum or 80% of remaining, whichever is smaller
	tm.maximumTime = min(tm.optimumTime*5, timeLeft*8/10)

	// Safety margin: never use more than 95% of remaining time
	tm.maximumTime = min(tm.maximumTime, timeLeft*95/100)

	if byoyomi > 0 {
		// Byoyomi is use-it-or-lose-it: spend at least the period.
		extra := max(byoyomi-tm.opts.NetworkDelay, 0)
		tm.optimumTime += extra
		tm.maximumTime += extra
	}

	tm.optimumTime = max(tm.optimumTime, tm.opts.MinimumThinkingTime)
	tm.maximumTime = max(tm.maximumTime, tm.optimumTime)
	tm.optimumTime = max(min(tm.optimumTime, available), minBudget)
	tm.maximumTime = max(min(tm.maximumTime, available), minBudget)
}

// Elapsed returns the time elapsed since search started or since ponderhit.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Duration(time.Now().UnixNano() - tm.startNanos.Load())
}

// OptimumTime returns the target time for this move.
func (tm *TimeManager) OptimumTime() time.Duration {
	return tm.optimumTime
}

// MaximumTime returns the maximum time allowed.
func (tm *TimeManager) MaximumTime() time.Duration {
	return tm.maximumTime
}

// PonderHit switches a pondering search onto the clock.
func (tm *TimeManager) PonderHit() {
	tm.startNanos.Store(time.Now().UnixNano())
	tm.pondering.Store(false)
}

// Exceeded reports whether a hard limit (maximum time or node count) is hit.
// It is polled from inside the search.
func (tm *TimeManager) Exceeded(elapsed time.Duration, nodes uint64) bool {
	if tm.nodeLimit > 0 && nodes >= tm.nodeLimit {
		return true
	}
	if tm.pondering.Load() {
		return false
	}
	return elapsed >= tm.maximumTime
}

// ShouldStop reports whether to stop starting new iterations. stability is
// the number of consecutive iterations with the same best move.
func (tm *TimeManager) ShouldStop(elapsed time.Duration, nodes uint64, stability int) bool {
	if tm.Exceeded(elapsed, nodes) {
		return true
	}
	if tm.pondering.Load() || tm.optimumTime == unlimited {
		return false
	}
	return elapsed >= tm.scaledOptimum(stability)
}

// scaledOptimum applies the stability, instability and falling-eval factors.
func (tm *TimeManager) scaledOptimum(stability int) time.Duration {
	permille := 1000
	switch {
	case stability >= 6:
		// Very stable: use only 40% of optimum
		permille = 400
	case stability >= 4:
		permille = 600
	case stability >= 2:
		permille = 800
	}
	permille = permille * tm.instability / 1000 * tm.falling / 1000
	t := tm.optimumTime / 1000 * time.Duration(permille)
	return min(t, tm.maximumTime)
}

// AdjustForInstability extends the budget when the best move keeps changing.
// changes is the number of best-move changes in recent iterations.
func (tm *TimeManager) AdjustForInstability(changes int) {
	switch {
	case changes >= 4:
		// Very unstable: use 200% of optimum (up to maximum)
		tm.instability = 2000
	case changes >= 2:
		tm.instability = 1500
	default:
		tm.instability = 1000
	}
}

// AdjustForFallingEval extends the budget when the score dropped by drop
// centipawns since the previous iteration.
func (tm *TimeManager) AdjustForFallingEval(drop int) {
	switch {
	case drop >= 100:
		tm.falling = 1600
	case drop >= 30:
		tm.falling = 1250
	default:
		tm.falling = 1000
	}
}
