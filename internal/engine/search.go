package engine

import (
	"errors"
	"math"

	"github.com/hailam/shogiplay/internal/board"
)

// Search constants
const (
	Infinity     = 30000
	MateScore    = 29000
	MaxPly       = 128
	MateInMaxPly = MateScore - MaxPly
	ValueNone    = Infinity + 1

	// stackOffset lets continuation lookups reach six plies before the root.
	stackOffset = 7
)

// Pruning constants
const (
	aspirationWindow        = 50
	aspirationMinDepth      = 5
	razorBase               = 300
	razorPerDepth           = 100
	rfpMaxDepth             = 8
	rfpMargin               = 80
	nmpMinDepth             = 3
	historyPruningThreshold = -4000
	qsearchDeltaMargin      = 200
	stopPollMask            = 4095
)

// ErrNoEvaluator is returned when a search is requested before an
// evaluator has been configured.
var ErrNoEvaluator = errors.New("no evaluator loaded")

// LMP (Late Move Pruning) thresholds by depth
// At depth d, skip quiet moves after lmpThreshold[d] moves
var lmpThreshold = [8]int{0, 3, 5, 9, 15, 23, 33, 45}

// futilityMargin by depth for quiet moves at shallow nodes.
var futilityMargin = [4]int{0, 200, 300, 500}

// LMR reduction table - precomputed logarithmic reductions
// (21.46 * log(depth)) * (21.46 * log(moveCount)) / 1024
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			rd := int(21.46 * math.Log(float64(d)))
			rm := int(21.46 * math.Log(float64(m)))
			lmrReductions[d][m] = rd * rm / 1024
		}
	}
}

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = max(pv.length[ply+1], ply+1)
}

func (pv *PVTable) line(ply int) []board.Move {
	out := make([]board.Move, 0, pv.length[ply]-ply)
	for j := ply; j < pv.length[ply]; j++ {
		out = append(out, pv.moves[ply][j])
	}
	return out
}

// stackEntry is the per-ply search context.
type stackEntry struct {
	currentMove board.Move
	contHist    *PieceToHistory
	staticEval  int
	inCheck     bool
}

// RootMove is one legal move at the root with its latest result.
type RootMove struct {
	Move      board.Move
	Score     int
	PrevScore int
	SelDepth  int
	PV        []board.Move
}

// isMateScore reports whether score encodes a forced mate.
func isMateScore(score int) bool {
	return score >= MateInMaxPly || score <= -MateInMaxPly
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
