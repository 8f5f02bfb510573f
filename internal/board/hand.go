package board

// Hand holds the captured pieces a player may drop, indexed by base type (Pawn..Gold).
type Hand [8]uint8

// MaxHand is the largest count a hand can hold for each type. It is also
// the size of the full piece set, so board and hands together never exceed it.
var MaxHand = [8]uint8{0, 18, 4, 4, 4, 2, 2, 4}

// Count returns how many pieces of type pt are held.
func (h Hand) Count(pt PieceType) int {
	return int(h[pt])
}

// Has returns true if at least one piece of type pt is held.
func (h Hand) Has(pt PieceType) bool {
	return h[pt] != 0
}

// IsEmpty returns true if the hand holds nothing.
func (h Hand) IsEmpty() bool {
	return h == Hand{}
}

// HasExceptPawn returns true if anything other than pawns is held.
func (h Hand) HasExceptPawn() bool {
	for pt := Lance; pt <= Gold; pt++ {
		if h[pt] != 0 {
			return true
		}
	}
	return false
}

// Total returns the number of pieces held.
func (h Hand) Total() int {
	n := 0
	for pt := Pawn; pt <= Gold; pt++ {
		n += int(h[pt])
	}
	return n
}
