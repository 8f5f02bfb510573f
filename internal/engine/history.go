package engine

import (
	"github.com/hailam/shogiplay/internal/board"
)

// History table bounds and initial fill values.
const (
	butterflyLimit    = 7183
	butterflyFill     = 68
	captureLimit      = 10692
	captureFill       = -689
	continuationLimit = 30000
	continuationFill  = -529
	lowPlyLimit       = 7183
	lowPlySize        = 5
)

// Update scaling, in 1/1024 units.
const (
	quietBonusScale   = 881
	quietMalusScale   = 1083
	lowPlyScale       = 761
	continuationScale = 955
	nearPlyOffset     = 88
)

// continuationWeights[i] scales the update of the table i+1 plies back.
var continuationWeights = [6]int{1157, 648, 288, 576, 140, 441}

// gravity moves *v toward the sign of bonus, saturating at ±limit.
func gravity(v *int16, bonus, limit int) {
	b := max(-limit, min(bonus, limit))
	cur := int(*v)
	*v = int16(cur + b - cur*abs(b)/limit)
}

// ButterflyHistory scores quiet moves by side and from/to.
type ButterflyHistory [2][board.HistorySize]int16

// Get returns the score of m for side c.
func (h *ButterflyHistory) Get(c board.Color, m board.Move) int {
	return int(h[c][m.HistoryIndex()])
}

// Update applies a gravity bonus to m for side c.
func (h *ButterflyHistory) Update(c board.Color, m board.Move, bonus int) {
	gravity(&h[c][m.HistoryIndex()], bonus, butterflyLimit)
}

// CaptureHistory scores captures by moved piece, destination and captured type.
type CaptureHistory [board.NumPieces][board.NumSquares][board.NumPieceTypes]int16

func (h *CaptureHistory) Get(pc board.Piece, to board.Square, captured board.PieceType) int {
	return int(h[pc][to][captured])
}

func (h *CaptureHistory) Update(pc board.Piece, to board.Square, captured board.PieceType, bonus int) {
	gravity(&h[pc][to][captured], bonus, captureLimit)
}

// PieceToHistory is one continuation slice: scores of (piece, to) given an
// earlier (piece, to).
type PieceToHistory [board.NumPieces][board.NumSquares]int16

func (h *PieceToHistory) Get(pc board.Piece, to board.Square) int {
	return int(h[pc][to])
}

func (h *PieceToHistory) Update(pc board.Piece, to board.Square, bonus int) {
	gravity(&h[pc][to], bonus, continuationLimit)
}

// ContinuationHistory holds a PieceToHistory per earlier (piece, to).
// The NoPiece row is a sentinel for plies before the root and null moves.
type ContinuationHistory [board.NumPieces][board.NumSquares]PieceToHistory

// LowPlyHistory boosts moves that worked near the root.
type LowPlyHistory [lowPlySize][board.HistorySize]int16

func (h *LowPlyHistory) Get(ply int, m board.Move) int {
	return int(h[ply][m.HistoryIndex()])
}

func (h *LowPlyHistory) Update(ply int, m board.Move, bonus int) {
	gravity(&h[ply][m.HistoryIndex()], bonus, lowPlyLimit)
}

// HistoryTables is the move-ordering state owned by one search worker.
type HistoryTables struct {
	Main         ButterflyHistory
	Capture      CaptureHistory
	Continuation ContinuationHistory
	LowPly       LowPlyHistory

	killers      [MaxPly + 1][2]board.Move
	counterMoves [board.NumPieces][board.NumSquares]board.Move
}

// NewHistoryTables allocates tables filled with their initial values.
func NewHistoryTables() *HistoryTables {
	h := &HistoryTables{}
	h.Clear()
	return h
}

// Clear restores every table to its initial fill, as for a new game.
func (h *HistoryTables) Clear() {
	fill16(h.Main[0][:], butterflyFill)
	fill16(h.Main[1][:], butterflyFill)
	for pc := range h.Capture {
		for sq := range h.Capture[pc] {
			fill16(h.Capture[pc][sq][:], captureFill)
		}
	}
	for pc := range h.Continuation {
		for sq := range h.Continuation[pc] {
			t := &h.Continuation[pc][sq]
			for p2 := range t {
				fill16(t[p2][:], continuationFill)
			}
		}
	}
	h.ClearLowPly()
	h.killers = [MaxPly + 1][2]board.Move{}
	h.counterMoves = [board.NumPieces][board.NumSquares]board.Move{}
}

// ClearLowPly resets the low-ply table, which only describes the current root.
func (h *HistoryTables) ClearLowPly() {
	for i := range h.LowPly {
		fill16(h.LowPly[i][:], 0)
	}
	for i := range h.killers {
		h.killers[i] = [2]board.Move{}
	}
}

func fill16(s []int16, v int16) {
	for i := range s {
		s[i] = v
	}
}

// ContinuationFor returns the slice keyed by a move of pc to to.
func (h *HistoryTables) ContinuationFor(pc board.Piece, to board.Square) *PieceToHistory {
	return &h.Continuation[pc][to]
}

// Sentinel returns the slice used where no earlier move exists.
func (h *HistoryTables) Sentinel() *PieceToHistory {
	return &h.Continuation[board.NoPiece][0]
}

// Killers returns the two killer moves stored at ply.
func (h *HistoryTables) Killers(ply int) [2]board.Move {
	if ply > MaxPly {
		return [2]board.Move{}
	}
	return h.killers[ply]
}

// UpdateKillers adds a killer move at the given ply.
func (h *HistoryTables) UpdateKillers(m board.Move, ply int) {
	if ply > MaxPly || h.killers[ply][0] == m {
		return
	}
	h.killers[ply][1] = h.killers[ply][0]
	h.killers[ply][0] = m
}

// CounterMove returns the reply recorded against a move of pc to to.
func (h *HistoryTables) CounterMove(pc board.Piece, to board.Square) board.Move {
	return h.counterMoves[pc][to]
}

// UpdateCounterMove records m as the reply to a move of pc to to.
func (h *HistoryTables) UpdateCounterMove(pc board.Piece, to board.Square, m board.Move) {
	if pc == board.NoPiece {
		return
	}
	h.counterMoves[pc][to] = m
}

// statBonus is the history reward for the move that produced a cutoff.
func statBonus(depth int, isTTMove bool) int {
	b := min(121*depth-77, 1633)
	if isTTMove {
		b += 375
	}
	return b
}

// statMalus is the history penalty for moves tried before the cutoff.
func statMalus(depth, moveCount int) int {
	return min(825*depth-196, 2159) - 16*moveCount
}

// continuationBonus scales an update for the table plyBack plies back.
func continuationBonus(bonus, plyBack int) int {
	b := bonus * continuationWeights[plyBack-1] / 1024
	if plyBack < 2 {
		b += nearPlyOffset
	}
	return b
}
