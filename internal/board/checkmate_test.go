package board

import (
	"errors"
	"testing"
)

func TestCheckmate(t *testing.T) {
	// White king on 1a, Black gold on 1b protected by a pawn on 1c.
	pos, err := ParseSFEN("8k/8G/8P/9/9/9/9/9/4K4 w - 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}

	t.Log("Checkmate position:")
	t.Log(pos)

	if !pos.InCheck() {
		t.Fatal("Expected White to be in check")
	}
	if moves := pos.GenerateLegalMoves(); moves.Len() != 0 {
		t.Errorf("Expected no legal moves, got %d", moves.Len())
	}
	if !pos.IsCheckmate() {
		t.Error("Expected checkmate but got false")
	}
}

func TestNotCheckmateWhenKingCanCapture(t *testing.T) {
	// Same as above without the protecting pawn: the king takes the gold.
	pos, err := ParseSFEN("8k/8G/9/9/9/9/9/9/4K4 w - 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}

	if pos.IsCheckmate() {
		t.Fatal("Expected a legal escape")
	}
	capture := NewMove(NewSquare(0, 0), NewSquare(0, 1))
	if !pos.GenerateLegalMoves().Contains(capture) {
		t.Errorf("Expected %s to be legal", capture)
	}
}

func TestPawnDropMateIsIllegal(t *testing.T) {
	// P*1b would mate: 2a and 2b are covered and the pawn is protected by the silver.
	pos, err := ParseSFEN("8k/6G2/7S1/9/9/9/9/9/4K4 b P 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}

	mateDrop := NewDrop(Pawn, NewSquare(0, 1))
	if pos.GenerateLegalMoves().Contains(mateDrop) {
		t.Errorf("%s should be illegal", mateDrop)
	}
	if _, err := ParseMove("P*1b", pos); !errors.Is(err, ErrIllegalMove) {
		t.Errorf("ParseMove(P*1b) error = %v, want ErrIllegalMove", err)
	}

	// A quiet pawn drop elsewhere is fine.
	if _, err := ParseMove("P*5e", pos); err != nil {
		t.Errorf("ParseMove(P*5e) error = %v", err)
	}
}

func TestNifu(t *testing.T) {
	pos, err := ParseSFEN("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b P 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}

	moves := pos.GenerateLegalMoves()
	for _, m := range moves.Slice() {
		if m.IsDrop() && m.DropType() == Pawn {
			t.Errorf("pawn drop %s generated on a file that already has a pawn", m)
		}
	}
}

func TestDeadSquareDrops(t *testing.T) {
	pos, err := ParseSFEN("4k4/9/9/9/9/9/9/9/4K4 b NL 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}

	for _, m := range pos.GenerateLegalMoves().Slice() {
		if !m.IsDrop() {
			continue
		}
		r := m.To().RelativeRank(Black)
		if m.DropType() == Lance && r == 0 {
			t.Errorf("lance dropped on last rank: %s", m)
		}
		if m.DropType() == Knight && r <= 1 {
			t.Errorf("knight dropped on last two ranks: %s", m)
		}
	}
}

func TestForcedPromotion(t *testing.T) {
	// A pawn on 5b must promote when it reaches 5a.
	pos, err := ParseSFEN("k8/4P4/9/9/9/9/9/9/4K4 b - 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}

	from := NewSquare(4, 1)
	to := NewSquare(4, 0)
	moves := pos.GenerateLegalMoves()
	if moves.Contains(NewMove(from, to)) {
		t.Error("non-promoting pawn move to the last rank generated")
	}
	if !moves.Contains(NewPromotion(from, to)) {
		t.Error("promoting pawn move missing")
	}
}

func TestMate1Ply(t *testing.T) {
	// G*5b is protected by the pawn on 5c.
	pos, err := ParseSFEN("4k4/9/4P4/9/9/9/9/9/4K4 b G 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}
	before := pos.SFEN()

	want := NewDrop(Gold, NewSquare(4, 1))
	if got := pos.Mate1Ply(); got != want {
		t.Errorf("Mate1Ply() = %s, want %s", got, want)
	}
	if pos.SFEN() != before {
		t.Errorf("Mate1Ply changed the position: %s", pos.SFEN())
	}
}

func TestMate1PlyNone(t *testing.T) {
	pos, err := ParseSFEN("4k4/9/9/9/9/9/9/9/4K4 b G 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}
	if got := pos.Mate1Ply(); got != NoMove {
		t.Errorf("Mate1Ply() = %s, want none", got)
	}
}

func TestMate1PlySkipsPawnDropMate(t *testing.T) {
	pos, err := ParseSFEN("8k/6G2/7S1/9/9/9/9/9/4K4 b P 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}

	m := pos.Mate1Ply()
	if m == NoMove {
		t.Fatal("expected a mate with the gold or the silver")
	}
	if m == NewDrop(Pawn, NewSquare(0, 1)) {
		t.Fatalf("Mate1Ply returned the forbidden pawn drop %s", m)
	}
	undo := pos.MakeMove(m)
	if !pos.IsCheckmate() {
		t.Errorf("%s does not mate", m)
	}
	pos.UnmakeMove(m, undo)
}
