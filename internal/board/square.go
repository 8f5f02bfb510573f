// Package board implements the shogi board representation using bitboards.
package board

import "fmt"

// Square represents a square on the shogi board (0-80).
// Squares are laid out file-major: index = file*9 + rank, where file 0 is
// shogi file 1 (the right edge from Black's view) and rank 0 is rank "a"
// (White's back rank).
type Square uint8

const (
	NumFiles   = 9
	NumRanks   = 9
	NumSquares = NumFiles * NumRanks

	NoSquare Square = NumSquares
)

// Board corners and the squares the tests and the start position use.
const (
	SQ11 Square = 0
	SQ19 Square = 8
	SQ91 Square = 72
	SQ99 Square = 80
)

// NewSquare creates a square from a 0-indexed file and rank.
func NewSquare(file, rank int) Square {
	return Square(file*NumRanks + rank)
}

// File returns the file of the square (0-8, where 0 is shogi file 1).
func (sq Square) File() int {
	return int(sq) / NumRanks
}

// Rank returns the rank of the square (0-8, where 0 is rank "a").
func (sq Square) Rank() int {
	return int(sq) % NumRanks
}

// IsValid returns true if the square is on the board.
func (sq Square) IsValid() bool {
	return sq < NoSquare
}

// Inverse returns the square rotated 180 degrees (White's view of the board).
func (sq Square) Inverse() Square {
	return SQ99 - sq
}

// RelativeRank returns the rank as seen from c, where 0 is the far rank.
func (sq Square) RelativeRank(c Color) int {
	if c == Black {
		return sq.Rank()
	}
	return NumRanks - 1 - sq.Rank()
}

// String returns the USI notation for the square (e.g. "7g").
func (sq Square) String() string {
	if !sq.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%c%c", '1'+sq.File(), 'a'+sq.Rank())
}

// ParseSquare parses USI notation (e.g. "7g") into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("%w: square %q", ErrMalformedMove, s)
	}

	file := int(s[0]) - '1'
	rank := int(s[1]) - 'a'

	if file < 0 || file >= NumFiles || rank < 0 || rank >= NumRanks {
		return NoSquare, fmt.Errorf("%w: square %q", ErrMalformedMove, s)
	}

	return NewSquare(file, rank), nil
}

// InPromotionZone returns true if sq lies in the three far ranks for c.
func (sq Square) InPromotionZone(c Color) bool {
	return sq.RelativeRank(c) < 3
}
