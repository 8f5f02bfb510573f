package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/shogiplay/internal/board"
)

func TestEvaluateMaterial(t *testing.T) {
	assert.Equal(t, 0, EvaluateMaterial(board.NewPosition()))

	// Black is a rook and a pawn in hand up; White to move sees it negated.
	pos := mustParse(t, "4k4/9/9/9/9/9/9/9/4K4 b RP 1")
	assert.Equal(t, 990+90, EvaluateMaterial(pos))
	pos = mustParse(t, "4k4/9/9/9/9/9/9/9/4K4 w RP 1")
	assert.Equal(t, -(990 + 90), EvaluateMaterial(pos))
}

func TestSEE(t *testing.T) {
	tests := []struct {
		name string
		sfen string
		move string
		want int
	}{
		{"free rook", "4k4/9/9/9/4r4/9/9/4R4/4K4 b - 1", "5h5e", 990},
		{"defended pawn", "4k4/9/9/4g4/4p4/9/9/4R4/4K4 b - 1", "5h5e", 90 - 990},
		{"quiet move", "4k4/9/4p4/9/9/9/9/4R4/4K4 b - 1", "5h5f", 0},
		{"drop en prise", "4k4/9/9/4p4/9/9/9/9/4K4 b G 1", "G*5e", -540},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := mustParse(t, tt.sfen)
			m, err := board.ParseMove(tt.move, pos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, SEE(pos, m))
			assert.True(t, SEEGE(pos, m, tt.want))
			assert.False(t, SEEGE(pos, m, tt.want+1))
		})
	}
}
