package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hailam/shogiplay/internal/board"
)

func TestGravitySaturates(t *testing.T) {
	var v int16
	for range 1000 {
		gravity(&v, 5000, butterflyLimit)
		assert.LessOrEqual(t, int(v), butterflyLimit)
	}
	assert.Greater(t, int(v), butterflyLimit*9/10)

	for range 1000 {
		gravity(&v, -50000, butterflyLimit)
		assert.GreaterOrEqual(t, int(v), -butterflyLimit)
	}
	assert.Less(t, int(v), -butterflyLimit*9/10)
}

func TestHistoryTablesInitialFill(t *testing.T) {
	h := NewHistoryTables()
	m := board.NewMove(board.NewSquare(2, 6), board.NewSquare(2, 5))
	pc := board.NewPiece(board.Pawn, board.Black)

	assert.Equal(t, butterflyFill, h.Main.Get(board.Black, m))
	assert.Equal(t, captureFill, h.Capture.Get(pc, m.To(), board.Silver))
	assert.Equal(t, continuationFill, h.Sentinel().Get(pc, m.To()))
	assert.Equal(t, 0, h.LowPly.Get(0, m))

	h.Main.Update(board.Black, m, 2000)
	h.LowPly.Update(1, m, 300)
	h.Clear()
	assert.Equal(t, butterflyFill, h.Main.Get(board.Black, m))
	assert.Equal(t, 0, h.LowPly.Get(1, m))
}

func TestKillersAndCounterMoves(t *testing.T) {
	h := NewHistoryTables()
	a := board.NewMove(board.NewSquare(1, 6), board.NewSquare(1, 5))
	b := board.NewDrop(board.Pawn, board.NewSquare(4, 4))

	h.UpdateKillers(a, 3)
	h.UpdateKillers(a, 3)
	assert.Equal(t, [2]board.Move{a, board.NoMove}, h.Killers(3))
	h.UpdateKillers(b, 3)
	assert.Equal(t, [2]board.Move{b, a}, h.Killers(3))

	pc := board.NewPiece(board.Rook, board.White)
	h.UpdateCounterMove(pc, board.NewSquare(7, 3), b)
	assert.Equal(t, b, h.CounterMove(pc, board.NewSquare(7, 3)))

	h.ClearLowPly()
	assert.Equal(t, [2]board.Move{}, h.Killers(3))
	assert.Equal(t, b, h.CounterMove(pc, board.NewSquare(7, 3)), "counter moves survive a new root")
}

func TestStatBonusShape(t *testing.T) {
	assert.Less(t, statBonus(1, false), statBonus(5, false))
	assert.Equal(t, statBonus(30, false), statBonus(40, false), "bonus is capped")
	assert.Equal(t, statBonus(4, false)+375, statBonus(4, true))
	assert.Less(t, statMalus(3, 20), statMalus(3, 2))
	assert.Equal(t, 1157*1000/1024+nearPlyOffset, continuationBonus(1000, 1))
	assert.Equal(t, 648*1000/1024, continuationBonus(1000, 2))
}

func TestCorrectionHistoryMovesTowardError(t *testing.T) {
	ch := NewCorrectionHistory()
	pos := board.NewPosition()
	assert.Zero(t, ch.Get(pos))

	for range 50 {
		ch.Update(pos, 400, 0, 8)
	}
	assert.Positive(t, ch.Get(pos))
	assert.LessOrEqual(t, ch.Get(pos), correctionScale*correctionLimit/correctionShift)

	ch.Clear()
	assert.Zero(t, ch.Get(pos))
}

func TestEvalCache(t *testing.T) {
	ec := NewEvalCache(1)
	_, ok := ec.Probe(12345)
	assert.False(t, ok)
	ec.Store(12345, -321)
	v, ok := ec.Probe(12345)
	assert.True(t, ok)
	assert.Equal(t, -321, v)

	ec.Clear()
	_, ok = ec.Probe(12345)
	assert.False(t, ok)
}
