package board

import (
	"math/bits"
	"strings"
)

// Bitboard is a set of squares on the 81-square board.
// Squares 0-63 live in lo, squares 64-80 in the low 17 bits of hi.
type Bitboard struct {
	lo, hi uint64
}

const hiMask = (uint64(1) << (NumSquares - 64)) - 1

// Special masks
var (
	Empty    = Bitboard{}
	Universe = Bitboard{lo: ^uint64(0), hi: hiMask}
)

// FileMask and RankMask hold one bitboard per file and rank.
var (
	FileMask [NumFiles]Bitboard
	RankMask [NumRanks]Bitboard
)

// zoneMask holds the three far ranks for each color.
var zoneMask [2]Bitboard

func init() {
	for sq := Square(0); sq < NoSquare; sq++ {
		FileMask[sq.File()] = FileMask[sq.File()].Set(sq)
		RankMask[sq.Rank()] = RankMask[sq.Rank()].Set(sq)
	}
	zoneMask[Black] = RankMask[0].Or(RankMask[1]).Or(RankMask[2])
	zoneMask[White] = RankMask[6].Or(RankMask[7]).Or(RankMask[8])
}

// SquareBB returns a bitboard with only the given square set.
func SquareBB(sq Square) Bitboard {
	if sq < 64 {
		return Bitboard{lo: 1 << sq}
	}
	return Bitboard{hi: 1 << (sq - 64)}
}

// PromotionZone returns the enemy camp for c.
func PromotionZone(c Color) Bitboard {
	return zoneMask[c]
}

// Set returns b with sq added.
func (b Bitboard) Set(sq Square) Bitboard {
	return b.Or(SquareBB(sq))
}

// Clear returns b with sq removed.
func (b Bitboard) Clear(sq Square) Bitboard {
	return b.AndNot(SquareBB(sq))
}

// IsSet returns true if sq is in the set.
func (b Bitboard) IsSet(sq Square) bool {
	if sq < 64 {
		return b.lo&(1<<sq) != 0
	}
	return b.hi&(1<<(sq-64)) != 0
}

func (b Bitboard) And(o Bitboard) Bitboard    { return Bitboard{b.lo & o.lo, b.hi & o.hi} }
func (b Bitboard) Or(o Bitboard) Bitboard     { return Bitboard{b.lo | o.lo, b.hi | o.hi} }
func (b Bitboard) Xor(o Bitboard) Bitboard    { return Bitboard{b.lo ^ o.lo, b.hi ^ o.hi} }
func (b Bitboard) AndNot(o Bitboard) Bitboard { return Bitboard{b.lo &^ o.lo, b.hi &^ o.hi} }

// Not returns the complement of b restricted to the board.
func (b Bitboard) Not() Bitboard {
	return Bitboard{^b.lo, ^b.hi & hiMask}
}

// IsEmpty returns true if no square is set.
func (b Bitboard) IsEmpty() bool {
	return b.lo|b.hi == 0
}

// Any returns true if at least one square is set.
func (b Bitboard) Any() bool {
	return b.lo|b.hi != 0
}

// Intersects returns true if b and o share a square.
func (b Bitboard) Intersects(o Bitboard) bool {
	return b.lo&o.lo|b.hi&o.hi != 0
}

// PopCount returns the number of squares set.
func (b Bitboard) PopCount() int {
	return bits.OnesCount64(b.lo) + bits.OnesCount64(b.hi)
}

// MoreThanOne returns true if two or more squares are set.
func (b Bitboard) MoreThanOne() bool {
	if b.lo != 0 && b.hi != 0 {
		return true
	}
	return b.lo&(b.lo-1) != 0 || b.hi&(b.hi-1) != 0
}

// LSB returns the lowest set square. Returns NoSquare for an empty board.
func (b Bitboard) LSB() Square {
	if b.lo != 0 {
		return Square(bits.TrailingZeros64(b.lo))
	}
	if b.hi != 0 {
		return Square(64 + bits.TrailingZeros64(b.hi))
	}
	return NoSquare
}

// MSB returns the highest set square. Returns NoSquare for an empty board.
func (b Bitboard) MSB() Square {
	if b.hi != 0 {
		return Square(127 - bits.LeadingZeros64(b.hi))
	}
	if b.lo != 0 {
		return Square(63 - bits.LeadingZeros64(b.lo))
	}
	return NoSquare
}

// PopLSB removes and returns the lowest set square.
func (b *Bitboard) PopLSB() Square {
	if b.lo != 0 {
		sq := Square(bits.TrailingZeros64(b.lo))
		b.lo &= b.lo - 1
		return sq
	}
	sq := Square(64 + bits.TrailingZeros64(b.hi))
	b.hi &= b.hi - 1
	return sq
}

// String renders the bitboard as a 9x9 grid seen from Black, file 9 on the left.
func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := 0; rank < NumRanks; rank++ {
		for file := NumFiles - 1; file >= 0; file-- {
			if b.IsSet(NewSquare(file, rank)) {
				sb.WriteString("1 ")
			} else {
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
