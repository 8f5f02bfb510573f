package board

import (
	"lukechampine.com/frand"
)

// Zobrist hash keys for position hashing.
// Generated from a fixed seed so hashes are reproducible across runs.
var (
	zobristPiece      [NumPieces][NumSquares]uint64
	zobristHand       [2][8][19]uint64 // [Color][PieceType][count], count 0 is zero
	zobristSideToMove uint64           // XOR when White to move
)

var zobristSeed = [32]byte{
	0x98, 0xF1, 0x07, 0xA2, 0xBE, 0xEF, 0x12, 0x34,
	0x5A, 0x17, 0xC3, 0x0D, 0x66, 0x9E, 0x81, 0x4B,
	0x2F, 0xD0, 0x73, 0x18, 0xA9, 0x55, 0xE4, 0xC1,
	0x0B, 0x7E, 0x3C, 0x92, 0x4D, 0xF8, 0x61, 0x2A,
}

const bignum = 1<<63 - 2

func init() {
	initZobrist()
}

func initZobrist() {
	rng := frand.NewCustom(zobristSeed[:], 1024, 12)

	for c := Black; c <= White; c++ {
		for pt := Pawn; pt < NumPieceTypes; pt++ {
			pc := NewPiece(pt, c)
			for sq := Square(0); sq < NoSquare; sq++ {
				zobristPiece[pc][sq] = rng.Uint64n(bignum) + 1
			}
		}
		for pt := Pawn; pt <= Gold; pt++ {
			for n := 1; n <= int(MaxHand[pt]); n++ {
				zobristHand[c][pt][n] = rng.Uint64n(bignum) + 1
			}
		}
	}

	zobristSideToMove = rng.Uint64n(bignum) + 1
}

// ZobristPiece returns the key for a piece on a square.
func ZobristPiece(pc Piece, sq Square) uint64 {
	return zobristPiece[pc][sq]
}

// ZobristHand returns the key for holding exactly n pieces of type pt.
func ZobristHand(c Color, pt PieceType, n int) uint64 {
	return zobristHand[c][pt][n]
}

// ZobristSideToMove returns the key for White to move.
func ZobristSideToMove() uint64 {
	return zobristSideToMove
}
