package engine

import (
	"github.com/hailam/shogiplay/internal/board"
)

// EvaluateMaterial returns the material balance, hands included, from the
// side to move's perspective.
func EvaluateMaterial(pos *board.Position) int {
	score := 0
	for c := board.Black; c <= board.White; c++ {
		sign := 1
		if c != pos.SideToMove {
			sign = -1
		}
		for pt := board.Pawn; pt < board.NumPieceTypes; pt++ {
			if pt == board.King {
				continue
			}
			score += sign * pos.Pieces(c, pt).PopCount() * board.PieceValue[pt]
		}
		hand := pos.Hand(c)
		for pt := board.Pawn; pt <= board.Gold; pt++ {
			score += sign * hand.Count(pt) * board.PieceValue[pt]
		}
	}
	return score
}

// MaterialEvaluator scores positions by material alone. It needs no
// incremental state and is used for benchmarks and search tests.
type MaterialEvaluator struct{}

func (MaterialEvaluator) Reset(*board.Position)                    {}
func (MaterialEvaluator) Push()                                    {}
func (MaterialEvaluator) Pop()                                     {}
func (MaterialEvaluator) Update(*board.Position, *board.DirtyPiece) {}

func (MaterialEvaluator) Evaluate(pos *board.Position) int {
	return EvaluateMaterial(pos)
}

// captureValue is the material a move wins on its destination square,
// promotion gain included.
func captureValue(pos *board.Position, m board.Move) int {
	v := 0
	if !m.IsDrop() {
		v = pos.PieceAt(m.To()).Value()
		if m.IsPromotion() {
			pt := pos.PieceAt(m.From()).Type()
			v += board.PieceValue[pt.Promote()] - board.PieceValue[pt]
		}
	}
	return v
}

// SEEGE reports whether the static exchange on m's destination gains at
// least threshold for the side making m.
func SEEGE(pos *board.Position, m board.Move, threshold int) bool {
	to := m.To()
	swap := captureValue(pos, m) - threshold
	if swap < 0 {
		return false
	}
	swap = pos.MovedPieceAfter(m).Value() - swap
	if swap <= 0 {
		return true
	}

	occ := pos.Occupied().Set(to)
	if !m.IsDrop() {
		occ = occ.Clear(m.From())
	}
	stm := pos.SideToMove
	res := true
	for {
		stm = stm.Other()
		attackers := pos.AttackersTo(stm, to, occ).And(occ)
		if attackers.IsEmpty() {
			break
		}
		res = !res

		sq, pt := leastValuable(pos, attackers)
		if pt == board.King {
			if pos.AttackersTo(stm.Other(), to, occ).And(occ).Any() {
				return !res
			}
			return res
		}
		swap = board.PieceValue[pt] - swap
		if res {
			if swap < 1 {
				break
			}
		} else if swap < 0 {
			break
		}
		occ = occ.Clear(sq)
	}
	return res
}

func leastValuable(pos *board.Position, attackers board.Bitboard) (board.Square, board.PieceType) {
	best := board.NoSquare
	bestType := board.NoPieceType
	bestValue := 1 << 30
	for bb := attackers; bb.Any(); {
		sq := bb.PopLSB()
		pt := pos.PieceAt(sq).Type()
		if v := board.PieceValue[pt]; v < bestValue {
			best, bestType, bestValue = sq, pt, v
		}
	}
	return best, bestType
}

// SEE returns the exchange result of m on its destination, found by bisecting
// on the largest threshold SEEGE accepts.
func SEE(pos *board.Position, m board.Move) int {
	lo, hi := -board.PieceValue[board.Dragon]*2, board.PieceValue[board.Dragon]*2
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if SEEGE(pos, m, mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
