package nnue

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/matryer/is"
	"lukechampine.com/frand"

	"github.com/hailam/shogiplay/internal/board"
)

var (
	testNetOnce sync.Once
	testNet     *Network
)

func sharedNet() *Network {
	testNetOnce.Do(func() { testNet = RandomNetwork(7) })
	return testNet
}

func seededRNG(seed uint64) *frand.RNG {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return frand.NewCustom(key[:], 1024, 12)
}

func TestFeatureLayout(t *testing.T) {
	is := is.New(t)

	is.Equal(FeEnd, 1535)
	is.Equal(handBase[0][board.Pawn], 1)
	is.Equal(handBase[1][board.Pawn], 19)
	is.Equal(handBase[1][board.Rook]+2, boardBase) // hand slots end where board slots start

	// The last board slot is an enemy dragon on the last square.
	last := PieceSlot(board.Black, board.NewPiece(board.Dragon, board.White), board.Square(80))
	is.Equal(last, FeEnd-1)

	// Kings have no slot.
	is.Equal(PieceSlot(board.Black, board.NewPiece(board.King, board.Black), board.Square(4)), -1)
}

func TestFeaturesAreSymmetric(t *testing.T) {
	is := is.New(t)

	// The start position looks the same from both sides.
	pos := board.NewPosition()
	var a, b [MaxActive]int
	black := ActiveFeatures(pos, board.Black, a[:0])
	white := ActiveFeatures(pos, board.White, b[:0])
	is.Equal(len(black), 38)

	seen := make(map[int]bool)
	for _, f := range black {
		seen[f] = true
	}
	for _, f := range white {
		is.True(seen[f])
	}
}

// Incremental updates along random games must match a full refresh.
func TestIncrementalMatchesRefresh(t *testing.T) {
	is := is.New(t)
	net := sharedNet()
	ev := NewEvaluator(net)
	rng := seededRNG(11)

	samples := 0
	ml := board.NewMoveList()
	for samples < 1200 {
		pos := board.NewPosition()
		ev.Reset()
		ev.Refresh(pos)

		var moves []board.Move
		var undos []board.UndoInfo
		for ply := 0; ply < 120; ply++ {
			pos.GenerateLegal(ml)
			if ml.Len() == 0 {
				break
			}
			m := ml.Get(rng.Intn(ml.Len()))
			ev.Push()
			undo := pos.MakeMove(m)
			ev.Update(pos, &undo.Dirty)
			moves = append(moves, m)
			undos = append(undos, undo)

			var fresh Accumulator
			fresh.refresh(pos, board.Black, net, ev.k)
			fresh.refresh(pos, board.White, net, ev.k)
			is.Equal(fresh.Values, ev.Current().Values)
			is.Equal(ev.Evaluate(pos), ev.EvaluateFull(pos))
			samples++
		}

		// Unwinding must land back on accumulators equal to a refresh as well.
		for i := len(moves) - 1; i >= 0; i-- {
			pos.UnmakeMove(moves[i], undos[i])
			ev.Pop()
			is.Equal(ev.Evaluate(pos), ev.EvaluateFull(pos))
		}
	}
}

func TestNullMoveKeepsAccumulator(t *testing.T) {
	is := is.New(t)
	ev := NewEvaluator(sharedNet())
	pos := board.NewPosition()
	ev.Refresh(pos)
	before := ev.Current().Values

	ev.Push()
	undo := pos.MakeNullMove()
	ev.Update(pos, &board.DirtyPiece{})
	is.Equal(ev.Current().Values, before)
	is.Equal(ev.Evaluate(pos), ev.EvaluateFull(pos))
	pos.UnmakeNullMove(undo)
	ev.Pop()
}

func TestScalarMatchesAccelerated(t *testing.T) {
	is := is.New(t)
	rng := seededRNG(5)

	for iter := 0; iter < 1000; iter++ {
		var a, b [L1Size]int16
		row := make([]int16, L1Size)
		for i := range a {
			a[i] = int16(rng.Intn(65536) - 32768)
			row[i] = int16(rng.Intn(65536) - 32768)
		}
		b = a
		addRowScalar(&a, row)
		accelKernels.addRow(&b, row)
		is.Equal(a, b)
		subRowScalar(&a, row)
		accelKernels.subRow(&b, row)
		is.Equal(a, b)

		in := make([]uint8, 2*L1Size)
		w := make([]int8, 2*L1Size)
		for i := range in {
			in[i] = uint8(rng.Intn(ActivationMax + 1))
			w[i] = int8(rng.Intn(256) - 128)
		}
		is.Equal(dotScalar(in, w), accelKernels.dot(in, w))
		is.Equal(dotScalar(in[:37], w[:37]), accelKernels.dot(in[:37], w[:37])) // scalar tail
	}

	// Whole evaluations agree along a random game.
	net := sharedNet()
	scalar := NewEvaluator(net)
	scalar.SetAccelerated(false)
	accel := NewEvaluator(net)
	accel.SetAccelerated(true)

	pos := board.NewPosition()
	ml := board.NewMoveList()
	for ply := 0; ply < 150; ply++ {
		is.Equal(scalar.EvaluateFull(pos), accel.EvaluateFull(pos))
		pos.GenerateLegal(ml)
		if ml.Len() == 0 {
			break
		}
		pos.MakeMove(ml.Get(rng.Intn(ml.Len())))
	}
}

func TestBucket(t *testing.T) {
	is := is.New(t)
	is.Equal(Bucket(2), 0)
	is.Equal(Bucket(40), NumBuckets-1)
	for n := 2; n <= 40; n++ {
		b := Bucket(n)
		is.True(b >= 0 && b < NumBuckets)
	}
}

func TestWeightsRoundTrip(t *testing.T) {
	is := is.New(t)
	net := sharedNet()

	var buf bytes.Buffer
	is.NoErr(net.Save(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	is.NoErr(err)

	pos := board.NewPosition()
	is.Equal(NewEvaluator(net).EvaluateFull(pos), NewEvaluator(loaded).EvaluateFull(pos))
}

func TestWeightsFailClosed(t *testing.T) {
	is := is.New(t)
	var good bytes.Buffer
	is.NoErr(sharedNet().Save(&good))
	data := good.Bytes()

	corrupt := func(off int, v uint32) []byte {
		b := append([]byte(nil), data...)
		binary.LittleEndian.PutUint32(b[off:], v)
		return b
	}

	cases := map[string][]byte{
		"empty":        nil,
		"magic":        corrupt(0, 0xDEADBEEF),
		"version":      corrupt(4, Version+1),
		"feature size": corrupt(8, NumFeatures-1),
		"l1":           corrupt(12, 256),
		"buckets":      corrupt(24, 1),
		"arch hash":    corrupt(28, 0),
		"truncated":    data[:len(data)-10],
		"trailing":     append(append([]byte(nil), data...), 0),
	}
	for name, b := range cases {
		_, err := Load(bytes.NewReader(b))
		is.True(err != nil)                        // must fail
		is.True(errors.Is(err, ErrEvaluatorFile)) // wraps the sentinel
		t.Logf("%s: %v", name, err)
	}

	_, err := LoadFile("does-not-exist.bin")
	is.True(errors.Is(err, ErrEvaluatorFile))
}
