package board

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

func seededRNG(seed uint64) *frand.RNG {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return frand.NewCustom(key[:], 1024, 12)
}

// randomLine plays up to n random legal moves, returning the moves and undo records.
func randomLine(pos *Position, rng *frand.RNG, n int) ([]Move, []UndoInfo) {
	var moves []Move
	var undos []UndoInfo
	ml := NewMoveList()
	for i := 0; i < n; i++ {
		pos.GenerateLegal(ml)
		if ml.Len() == 0 {
			break
		}
		m := ml.Get(rng.Intn(ml.Len()))
		undos = append(undos, pos.MakeMove(m))
		moves = append(moves, m)
	}
	return moves, undos
}

func TestStartSFENScenario(t *testing.T) {
	pos, err := ParseSFEN("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1")
	require.NoError(t, err)

	assert.Equal(t, Black, pos.SideToMove)
	assert.Equal(t, 40, pos.PieceCountOnBoard())
	assert.Equal(t, NewPiece(King, Black), pos.PieceAt(NewSquare(4, 8)))
	assert.Equal(t, NewPiece(King, White), pos.PieceAt(NewSquare(4, 0)))
	assert.Equal(t, NewPiece(Rook, Black), pos.PieceAt(NewSquare(1, 7)))
	assert.Equal(t, NewPiece(Bishop, Black), pos.PieceAt(NewSquare(7, 7)))
	assert.True(t, pos.Hand(Black).IsEmpty())
	assert.False(t, pos.InCheck())
	assert.Equal(t, StartSFEN, pos.SFEN())
}

func TestSFENRoundTrip(t *testing.T) {
	sfens := []string{
		StartSFEN,
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 2",
		"8l/1l+R2P3/p2pBG1pp/kps1p4/Nn1P2G2/P1P1P2PP/1PS6/1KSG3+r1/LN2+p3L w Sbgn3p 124",
		"4k4/9/9/9/9/9/9/9/4K4 b 2R2B4G4S4N4L18P 1",
	}
	for _, s := range sfens {
		t.Run(s, func(t *testing.T) {
			pos, err := ParseSFEN(s)
			require.NoError(t, err)
			assert.Equal(t, s, pos.SFEN())
			assert.Equal(t, pos.ComputeHash(), pos.Hash)
		})
	}
}

func TestSFENMoveNumberOptional(t *testing.T) {
	pos, err := ParseSFEN("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b -")
	require.NoError(t, err)
	assert.Equal(t, StartSFEN, pos.SFEN())
}

func TestSFENMalformed(t *testing.T) {
	bad := []string{
		"",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1 b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL x - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSN b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSG+KGSNL b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b 3K 1",
		"lnsg1gsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1",
		"lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b 19P 1",
		"4k4/9/9/9/4p4/4P4/9/9/4K4 b 18P 1",  // 20 pawns in the set
		"4k4/9/9/9/9/9/9/9/4K4 b B2b 1",      // 3 bishops
		"4k4/9/9/9/9/4+R4/9/9/4K4 b Rr 1",    // dragon counts as a rook
		"4k4/9/9/9/9/9/9/9/4K4 b 02P 1",      // leading zero
		"4k4/9/9/9/9/9/9/9/4K4 b 0P 1",       // zero count
		"4k4/9/9/9/9/9/9/9/4K4 b 100000000000000000002P 1",
		"4k4/9/9/9/9/9/9/9/4K4 b 100P 1",
		"4k4/9/9/9/9/9/9/9/4K4 b P2 1",       // dangling count
	}
	for _, s := range bad {
		_, err := ParseSFEN(s)
		assert.ErrorIs(t, err, ErrMalformedSFEN, "sfen %q", s)
	}
}

func TestSFENHandCounts(t *testing.T) {
	pos, err := ParseSFEN("4k4/9/9/9/9/9/9/9/4K4 b 1P10p 1")
	require.NoError(t, err)
	assert.Equal(t, 1, pos.Hand(Black).Count(Pawn))
	assert.Equal(t, 10, pos.Hand(White).Count(Pawn))
	assert.Equal(t, "4k4/9/9/9/9/9/9/9/4K4 b P10p 1", pos.SFEN())
}

func TestCaptureWithFullPieceSet(t *testing.T) {
	// Black holds every pawn not on the board and takes the last white one.
	pos, err := ParseSFEN("4k4/9/9/9/4p4/4P4/9/9/4K4 b 16P 1")
	require.NoError(t, err)
	m, err := ParseMove("5f5e", pos)
	require.NoError(t, err)

	before := pos.Copy()
	undo := pos.MakeMove(m)
	assert.Equal(t, 17, pos.Hand(Black).Count(Pawn))
	assert.Equal(t, pos.ComputeHash(), pos.Hash)
	pos.UnmakeMove(m, undo)
	assert.Equal(t, *before, *pos)
}

func TestApplyRevertRoundTrip(t *testing.T) {
	rng := seededRNG(1)
	for game := 0; game < 20; game++ {
		pos := NewPosition()
		before := pos.Copy()

		moves, undos := randomLine(pos, rng, 120)
		for i := len(moves) - 1; i >= 0; i-- {
			pos.UnmakeMove(moves[i], undos[i])
		}

		require.Equal(t, before.SFEN(), pos.SFEN())
		require.Equal(t, *before, *pos, "position differs after reverting %d moves", len(moves))
	}
}

func TestHashConsistency(t *testing.T) {
	rng := seededRNG(2)
	ml := NewMoveList()
	for game := 0; game < 20; game++ {
		pos := NewPosition()
		for ply := 0; ply < 150; ply++ {
			pos.GenerateLegal(ml)
			if ml.Len() == 0 {
				break
			}
			m := ml.Get(rng.Intn(ml.Len()))
			undo := pos.MakeMove(m)
			require.Equal(t, pos.ComputeHash(), pos.Hash, "after %s", m)
			require.Equal(t, pos.ComputePawnKey(), pos.PawnKey, "after %s", m)

			// Occasionally step back and forward again.
			if rng.Intn(4) == 0 {
				pos.UnmakeMove(m, undo)
				require.Equal(t, pos.ComputeHash(), pos.Hash)
				pos.MakeMove(m)
			}

			// The SFEN of the position must reparse to the same hash.
			re, err := ParseSFEN(pos.SFEN())
			require.NoError(t, err)
			require.Equal(t, pos.Hash, re.Hash)
		}
	}
}

func TestNullMoveRoundTrip(t *testing.T) {
	pos := NewPosition()
	before := *pos.Copy()

	undo := pos.MakeNullMove()
	assert.Equal(t, White, pos.SideToMove)
	assert.Equal(t, pos.ComputeHash(), pos.Hash)
	pos.UnmakeNullMove(undo)

	assert.Equal(t, before, *pos)
}

func TestRepetitionDraw(t *testing.T) {
	pos := NewPosition()
	line := []string{"5i4h", "5a4b", "4h5i", "4b5a"}
	for _, s := range line {
		m, err := ParseMove(s, pos)
		require.NoError(t, err)
		pos.MakeMove(m)
	}
	assert.Equal(t, RepDraw, pos.Repetition())
}

func TestRepetitionPerpetualCheck(t *testing.T) {
	pos, err := ParseSFEN("4k4/9/9/9/9/9/9/9/R3K4 b - 1")
	require.NoError(t, err)

	line := []string{"9i9a", "5a5b", "9a9b", "5b5a", "9b9a", "5a5b", "9a9b", "5b5a"}
	for _, s := range line {
		m, err := ParseMove(s, pos)
		require.NoError(t, err, s)
		pos.MakeMove(m)
	}
	// Black checked on every move of the cycle and is to move.
	assert.Equal(t, RepLose, pos.Repetition())

	// One ply further the repeating side is White, who was checked throughout.
	m, err := ParseMove("9b9a", pos)
	require.NoError(t, err)
	pos.MakeMove(m)
	assert.Equal(t, RepWin, pos.Repetition())
}

func TestPseudoLegalMatchesGeneration(t *testing.T) {
	rng := seededRNG(3)
	pos := NewPosition()
	randomLine(pos, rng, 40)

	ml := NewMoveList()
	if pos.InCheck() {
		pos.Generate(ml, GenEvasions)
	} else {
		pos.Generate(ml, GenAll)
	}
	for _, m := range ml.Slice() {
		assert.True(t, pos.PseudoLegal(m), "generated move %s rejected", m)
	}

	assert.False(t, pos.PseudoLegal(NoMove))
	assert.False(t, pos.PseudoLegal(NullMove))
}

func TestDeclarationWin(t *testing.T) {
	// Black king in the enemy camp with ten pieces and enough material.
	pos, err := ParseSFEN("+R+B+PK+P+P2k/+R+BGGG4/+P+P+P6/9/9/9/9/9/9 b 2S2N 1")
	require.NoError(t, err)
	assert.True(t, pos.DeclarationWin())

	start := NewPosition()
	assert.False(t, start.DeclarationWin())
}

func TestCapturesAndQuietsPartitionAll(t *testing.T) {
	rng := seededRNG(4)
	pos := NewPosition()
	ml := NewMoveList()
	for ply := 0; ply < 200; ply++ {
		if !pos.InCheck() {
			var all, caps, quiets MoveList
			pos.Generate(&all, GenAll)
			pos.Generate(&caps, GenCaptures)
			pos.Generate(&quiets, GenQuiets)

			seen := make(map[Move]int)
			for _, m := range caps.Slice() {
				seen[m]++
			}
			for _, m := range quiets.Slice() {
				seen[m]++
			}
			require.Equal(t, all.Len(), caps.Len()+quiets.Len(), pos.SFEN())
			for _, m := range all.Slice() {
				require.Equal(t, 1, seen[m], "move %s in %s", m, pos.SFEN())
			}
		}

		pos.GenerateLegal(ml)
		if ml.Len() == 0 {
			break
		}
		pos.MakeMove(ml.Get(rng.Intn(ml.Len())))
	}
}
