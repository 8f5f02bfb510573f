package engine

import (
	"github.com/hailam/shogiplay/internal/board"
)

// CorrectionHistorySize is the number of pawn-structure buckets per color.
const CorrectionHistorySize = 65536
const CorrectionHistoryMask = CorrectionHistorySize - 1

// correctionLimit bounds each entry; corrections are applied at 9536/131072 scale.
const (
	correctionLimit = 1024
	correctionScale = 9536
	correctionShift = 131072
)

// CorrectionHistory adjusts static evaluation based on search results.
// When the search discovers the static eval was wrong for a pawn structure,
// we record the error and correct similar positions in the future.
type CorrectionHistory struct {
	pawn [CorrectionHistorySize][2]int16
}

// NewCorrectionHistory creates a new correction history table.
func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

func (ch *CorrectionHistory) index(pos *board.Position) int {
	return int(pos.PawnKey & CorrectionHistoryMask)
}

// Get returns the correction in centipawns to add to the static eval of pos.
func (ch *CorrectionHistory) Get(pos *board.Position) int {
	v := int(ch.pawn[ch.index(pos)][pos.SideToMove])
	return correctionScale * v / correctionShift
}

// Update records the error between a search result and the static eval.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}
	bonus := (searchScore - staticEval) * depth / 8
	bonus = max(-correctionLimit/4, min(bonus, correctionLimit/4))
	gravity(&ch.pawn[ch.index(pos)][pos.SideToMove], bonus, correctionLimit)
}

// Clear resets all correction values.
func (ch *CorrectionHistory) Clear() {
	ch.pawn = [CorrectionHistorySize][2]int16{}
}
