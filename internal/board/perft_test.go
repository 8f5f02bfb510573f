package board

import "testing"

// TestPerftStartingPosition tests move generation from the starting position.
func TestPerftStartingPosition(t *testing.T) {
	pos := NewPosition()

	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 30},
		{2, 900},
		{3, 25470},
		// Depth 4 takes a few seconds, enable for thorough testing:
		// {4, 719731},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := pos.Perft(tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

// TestPerftDivideSumsToPerft checks that per-move counts add up.
func TestPerftDivideSumsToPerft(t *testing.T) {
	pos := NewPosition()

	var total uint64
	for _, n := range pos.PerftDivide(2) {
		total += n
	}
	if total != 900 {
		t.Errorf("divide(2) sums to %d, want 900", total)
	}
}

// TestPerftLeavesPositionUntouched verifies perft restores the root.
func TestPerftLeavesPositionUntouched(t *testing.T) {
	pos := NewPosition()
	before := pos.SFEN()
	hash := pos.Hash

	pos.Perft(3)

	if pos.SFEN() != before {
		t.Errorf("SFEN changed: %s -> %s", before, pos.SFEN())
	}
	if pos.Hash != hash {
		t.Errorf("hash changed: %x -> %x", hash, pos.Hash)
	}
}

// TestMaxMovesPosition checks the position with the most known legal moves
// fits a MoveList without a capacity check.
func TestMaxMovesPosition(t *testing.T) {
	pos, err := ParseSFEN("R8/2K1S1SSk/4B4/9/9/9/9/9/1L1L1L3 b RBGSNLP3g3n17p 1")
	if err != nil {
		t.Fatal("Error parsing SFEN:", err)
	}

	var pseudo MoveList
	pos.Generate(&pseudo, GenAll)
	if pseudo.Len() > MaxMoves {
		t.Fatalf("pseudo-legal moves = %d, exceeds MaxMoves %d", pseudo.Len(), MaxMoves)
	}
	if got := pos.GenerateLegalMoves().Len(); got != 593 {
		t.Errorf("legal moves = %d, want 593", got)
	}
}
