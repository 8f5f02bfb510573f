package board

// Ray directions. The first four step toward higher square indices, so the
// nearest blocker on those rays is the LSB; the rest use the MSB.
const (
	dirS  = iota // rank+1
	dirW         // file+1
	dirSW        // file+1, rank+1
	dirNW        // file+1, rank-1
	dirN         // rank-1
	dirE         // file-1
	dirNE        // file-1, rank-1
	dirSE        // file-1, rank+1
	numDirs
)

var dirDelta = [numDirs][2]int{
	{0, 1}, {1, 0}, {1, 1}, {1, -1},
	{0, -1}, {-1, 0}, {-1, -1}, {-1, 1},
}

// Precomputed attack tables
var (
	rays [numDirs][NumSquares]Bitboard

	pawnAttacks   [2][NumSquares]Bitboard
	knightAttacks [2][NumSquares]Bitboard
	silverAttacks [2][NumSquares]Bitboard
	goldAttacks   [2][NumSquares]Bitboard
	kingAttacks   [NumSquares]Bitboard

	betweenBB [NumSquares][NumSquares]Bitboard
	lineBB    [NumSquares][NumSquares]Bitboard
)

func init() {
	initAttacks()
}

func onBoard(file, rank int) bool {
	return file >= 0 && file < NumFiles && rank >= 0 && rank < NumRanks
}

// stepBB collects the squares reached by single steps from sq. Offsets are
// given from Black's side and flipped for White.
func stepBB(sq Square, c Color, offsets [][2]int) Bitboard {
	var bb Bitboard
	f, r := sq.File(), sq.Rank()
	for _, o := range offsets {
		df, dr := o[0], o[1]
		if c == White {
			dr = -dr
		}
		if onBoard(f+df, r+dr) {
			bb = bb.Set(NewSquare(f+df, r+dr))
		}
	}
	return bb
}

func initAttacks() {
	var (
		pawnSteps   = [][2]int{{0, -1}}
		knightSteps = [][2]int{{1, -2}, {-1, -2}}
		silverSteps = [][2]int{{0, -1}, {1, -1}, {-1, -1}, {1, 1}, {-1, 1}}
		goldSteps   = [][2]int{{0, -1}, {1, -1}, {-1, -1}, {1, 0}, {-1, 0}, {0, 1}}
		kingSteps   = [][2]int{{0, -1}, {1, -1}, {-1, -1}, {1, 0}, {-1, 0}, {0, 1}, {1, 1}, {-1, 1}}
	)

	for sq := Square(0); sq < NoSquare; sq++ {
		for c := Black; c <= White; c++ {
			pawnAttacks[c][sq] = stepBB(sq, c, pawnSteps)
			knightAttacks[c][sq] = stepBB(sq, c, knightSteps)
			silverAttacks[c][sq] = stepBB(sq, c, silverSteps)
			goldAttacks[c][sq] = stepBB(sq, c, goldSteps)
		}
		kingAttacks[sq] = stepBB(sq, Black, kingSteps)

		for d := 0; d < numDirs; d++ {
			f, r := sq.File()+dirDelta[d][0], sq.Rank()+dirDelta[d][1]
			for onBoard(f, r) {
				rays[d][sq] = rays[d][sq].Set(NewSquare(f, r))
				f += dirDelta[d][0]
				r += dirDelta[d][1]
			}
		}
	}

	for a := Square(0); a < NoSquare; a++ {
		for d := 0; d < numDirs; d++ {
			ray := rays[d][a]
			for bb := ray; bb.Any(); {
				b := bb.PopLSB()
				opposite := (d + 4) % numDirs
				betweenBB[a][b] = ray.And(rays[opposite][b])
				lineBB[a][b] = ray.Or(rays[opposite][a]).Set(a)
			}
		}
	}
}

// rayAttack returns the squares along direction d from sq up to and including the first blocker.
func rayAttack(d int, sq Square, occ Bitboard) Bitboard {
	ray := rays[d][sq]
	blockers := ray.And(occ)
	if blockers.IsEmpty() {
		return ray
	}
	var b Square
	if d < dirN {
		b = blockers.LSB()
	} else {
		b = blockers.MSB()
	}
	return ray.AndNot(rays[d][b])
}

// PawnAttacks returns the square a pawn of color c on sq attacks.
func PawnAttacks(c Color, sq Square) Bitboard { return pawnAttacks[c][sq] }

// KnightAttacks returns the squares a knight of color c on sq attacks.
func KnightAttacks(c Color, sq Square) Bitboard { return knightAttacks[c][sq] }

// SilverAttacks returns the squares a silver of color c on sq attacks.
func SilverAttacks(c Color, sq Square) Bitboard { return silverAttacks[c][sq] }

// GoldAttacks returns the squares a gold (or promoted minor) of color c on sq attacks.
func GoldAttacks(c Color, sq Square) Bitboard { return goldAttacks[c][sq] }

// KingAttacks returns the squares a king on sq attacks.
func KingAttacks(sq Square) Bitboard { return kingAttacks[sq] }

// LanceAttacks returns the squares a lance of color c on sq attacks.
func LanceAttacks(c Color, sq Square, occ Bitboard) Bitboard {
	if c == Black {
		return rayAttack(dirN, sq, occ)
	}
	return rayAttack(dirS, sq, occ)
}

// BishopAttacks returns the diagonal attacks from sq.
func BishopAttacks(sq Square, occ Bitboard) Bitboard {
	return rayAttack(dirSW, sq, occ).Or(rayAttack(dirNW, sq, occ)).
		Or(rayAttack(dirNE, sq, occ)).Or(rayAttack(dirSE, sq, occ))
}

// RookAttacks returns the orthogonal attacks from sq.
func RookAttacks(sq Square, occ Bitboard) Bitboard {
	return rayAttack(dirS, sq, occ).Or(rayAttack(dirW, sq, occ)).
		Or(rayAttack(dirN, sq, occ)).Or(rayAttack(dirE, sq, occ))
}

// HorseAttacks returns the attacks of a promoted bishop.
func HorseAttacks(sq Square, occ Bitboard) Bitboard {
	return BishopAttacks(sq, occ).Or(kingAttacks[sq])
}

// DragonAttacks returns the attacks of a promoted rook.
func DragonAttacks(sq Square, occ Bitboard) Bitboard {
	return RookAttacks(sq, occ).Or(kingAttacks[sq])
}

// Attacks returns the squares piece pc on sq attacks given occupancy occ.
func Attacks(pc Piece, sq Square, occ Bitboard) Bitboard {
	c := pc.Color()
	switch pc.Type() {
	case Pawn:
		return pawnAttacks[c][sq]
	case Lance:
		return LanceAttacks(c, sq, occ)
	case Knight:
		return knightAttacks[c][sq]
	case Silver:
		return silverAttacks[c][sq]
	case Gold, ProPawn, ProLance, ProKnight, ProSilver:
		return goldAttacks[c][sq]
	case Bishop:
		return BishopAttacks(sq, occ)
	case Rook:
		return RookAttacks(sq, occ)
	case King:
		return kingAttacks[sq]
	case Horse:
		return HorseAttacks(sq, occ)
	case Dragon:
		return DragonAttacks(sq, occ)
	}
	return Empty
}

// Between returns the squares strictly between a and b when aligned, else Empty.
func Between(a, b Square) Bitboard {
	return betweenBB[a][b]
}

// Line returns the full line through a and b when aligned, else Empty.
func Line(a, b Square) Bitboard {
	return lineBB[a][b]
}

// Aligned returns true if a, b and c lie on one line.
func Aligned(a, b, c Square) bool {
	return lineBB[a][b].IsSet(c)
}
