package nnue

import "github.com/hailam/shogiplay/internal/board"

// Feature layout per perspective: the perspective's king square (81) times
// a piece slot. Slot 0 is unused, then one slot per k-th piece in hand for
// each hand type and ownership, then board slots for 9 piece kinds (golds
// and promoted minors share a kind) times 2 ownerships times 81 squares.
const (
	handSlots  = 2 * (18 + 4 + 4 + 4 + 4 + 2 + 2) // 76
	boardBase  = 1 + handSlots                    // 77
	boardKinds = 9

	// FeEnd is the number of piece slots for one king square.
	FeEnd = boardBase + boardKinds*2*board.NumSquares // 1535

	// NumFeatures is the input size per perspective.
	NumFeatures = board.NumSquares * FeEnd

	// MaxActive bounds the active features of one perspective: each of the
	// 38 non-king pieces is on the board or in a hand.
	MaxActive = 38
)

// handBase[owner relative to perspective][piece type] is the slot of the
// first piece of that type in hand.
var handBase [2][board.Gold + 1]int

// boardKind maps a piece type to its board kind, -1 for kings.
var boardKind = [board.NumPieceTypes]int{
	board.Pawn:      0,
	board.Lance:     1,
	board.Knight:    2,
	board.Silver:    3,
	board.Gold:      4,
	board.ProPawn:   4,
	board.ProLance:  4,
	board.ProKnight: 4,
	board.ProSilver: 4,
	board.Bishop:    5,
	board.Horse:     6,
	board.Rook:      7,
	board.Dragon:    8,
	board.King:      -1,
}

func init() {
	slot := 1
	for _, pt := range []board.PieceType{board.Pawn, board.Lance, board.Knight, board.Silver, board.Gold, board.Bishop, board.Rook} {
		for rel := 0; rel < 2; rel++ {
			handBase[rel][pt] = slot
			slot += int(board.MaxHand[pt])
		}
	}
}

// relative returns 0 when owner is the perspective and 1 otherwise.
func relative(perspective, owner board.Color) int {
	if perspective == owner {
		return 0
	}
	return 1
}

// orient maps a square into the perspective's frame: White sees the board rotated.
func orient(perspective board.Color, sq board.Square) board.Square {
	if perspective == board.White {
		return sq.Inverse()
	}
	return sq
}

// PieceSlot returns the slot of pc on sq from perspective, or -1 for kings.
func PieceSlot(perspective board.Color, pc board.Piece, sq board.Square) int {
	kind := boardKind[pc.Type()]
	if kind < 0 {
		return -1
	}
	rel := relative(perspective, pc.Color())
	return boardBase + (kind*2+rel)*board.NumSquares + int(orient(perspective, sq))
}

// HandSlot returns the slot of the k-th (1-based) piece of type pt held by owner.
func HandSlot(perspective, owner board.Color, pt board.PieceType, k int) int {
	return handBase[relative(perspective, owner)][pt] + k - 1
}

// FeatureIndex combines the perspective's king square and a slot.
func FeatureIndex(perspective board.Color, ksq board.Square, slot int) int {
	return int(orient(perspective, ksq))*FeEnd + slot
}

// itemIndex returns the feature of a dirty item, false for king placements.
func itemIndex(perspective board.Color, ksq board.Square, it board.DirtyItem) (int, bool) {
	var slot int
	if it.Square == board.NoSquare {
		slot = HandSlot(perspective, it.Piece.Color(), it.Piece.Type(), int(it.HandIndex))
	} else {
		slot = PieceSlot(perspective, it.Piece, it.Square)
		if slot < 0 {
			return 0, false
		}
	}
	return FeatureIndex(perspective, ksq, slot), true
}

// ActiveFeatures appends the active features of pos from perspective to dst.
func ActiveFeatures(pos *board.Position, perspective board.Color, dst []int) []int {
	ksq := pos.KingSquare[perspective]

	for occ := pos.Occupied(); occ.Any(); {
		sq := occ.PopLSB()
		if slot := PieceSlot(perspective, pos.PieceAt(sq), sq); slot >= 0 {
			dst = append(dst, FeatureIndex(perspective, ksq, slot))
		}
	}

	for c := board.Black; c <= board.White; c++ {
		hand := pos.Hand(c)
		for pt := board.Pawn; pt <= board.Gold; pt++ {
			for k := 1; k <= hand.Count(pt); k++ {
				dst = append(dst, FeatureIndex(perspective, ksq, HandSlot(perspective, c, pt, k)))
			}
		}
	}
	return dst
}
