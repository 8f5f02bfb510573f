package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"

	"github.com/hailam/shogiplay/internal/board"
)

func TestTTStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.NewSearch()

	key := uint64(0x9e3779b97f4a7c15)
	m := board.NewMove(board.NewSquare(6, 6), board.NewSquare(6, 5))

	_, hit := tt.Probe(key)
	assert.False(t, hit, "empty table must miss")

	tt.Store(key, 7, 123, -45, TTExact, m, true)
	e, hit := tt.Probe(key)
	require.True(t, hit)
	assert.Equal(t, m, e.BestMove)
	assert.Equal(t, 123, e.Score)
	assert.Equal(t, -45, e.Eval)
	assert.Equal(t, 7, e.Depth)
	assert.Equal(t, TTExact, e.Flag)
	assert.True(t, e.IsPV)

	// Same cluster, different key.
	_, hit = tt.Probe(key ^ 1<<60)
	assert.False(t, hit)
}

func TestTTNegativeDepthAndValueNone(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(42, -3, -29000, ValueNone, TTUpperBound, board.NoMove, false)
	e, hit := tt.Probe(42)
	require.True(t, hit)
	assert.Equal(t, -3, e.Depth)
	assert.Equal(t, -29000, e.Score)
	assert.Equal(t, ValueNone, e.Eval)
}

func TestTTKeepsMoveWhenStoringNone(t *testing.T) {
	tt := NewTranspositionTable(1)
	m := board.NewDrop(board.Gold, board.NewSquare(4, 4))
	tt.Store(99, 5, 10, 0, TTLowerBound, m, false)
	tt.Store(99, 6, 20, 0, TTUpperBound, board.NoMove, false)

	e, hit := tt.Probe(99)
	require.True(t, hit)
	assert.Equal(t, m, e.BestMove)
	assert.Equal(t, 20, e.Score)
}

func TestTTKeepsDeeperEntry(t *testing.T) {
	tt := NewTranspositionTable(1)
	m1 := board.NewMove(board.NewSquare(1, 6), board.NewSquare(1, 5))
	m2 := board.NewMove(board.NewSquare(2, 6), board.NewSquare(2, 5))
	tt.Store(7, 20, 300, 0, TTLowerBound, m1, false)
	tt.Store(7, 2, -50, 0, TTUpperBound, m2, false)

	e, hit := tt.Probe(7)
	require.True(t, hit)
	assert.Equal(t, 20, e.Depth, "shallow non-exact store must not overwrite")
	assert.Equal(t, 300, e.Score)
	assert.Equal(t, m2, e.BestMove, "the move is refreshed")
}

func TestTTReplacementPrefersOldThenShallow(t *testing.T) {
	tt := NewTranspositionTable(1)
	clusters := uint64(len(tt.clusters))
	key := func(i uint64) uint64 { return 5 + i*clusters } // all map to cluster 5

	tt.Store(key(0), 3, 0, 0, TTExact, board.NoMove, false) // old generation
	tt.NewSearch()
	tt.Store(key(1), 9, 0, 0, TTExact, board.NoMove, false)
	tt.Store(key(2), 1, 0, 0, TTExact, board.NoMove, false)
	tt.Store(key(3), 8, 0, 0, TTExact, board.NoMove, false)

	// Cluster full: the old entry goes first.
	tt.Store(key(4), 5, 0, 0, TTExact, board.NoMove, false)
	_, hit := tt.Probe(key(0))
	assert.False(t, hit)

	// Then the shallowest of the current generation.
	tt.Store(key(5), 5, 0, 0, TTExact, board.NoMove, false)
	_, hit = tt.Probe(key(2))
	assert.False(t, hit)
	for _, i := range []uint64{1, 3, 4, 5} {
		_, hit = tt.Probe(key(i))
		assert.True(t, hit, "key %d", i)
	}
}

func TestTTGenerationHorizon(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(11, 4, 0, 0, TTExact, board.NoMove, false)

	tt.SetHorizon(2)
	tt.NewSearch()
	tt.NewSearch()
	_, hit := tt.Probe(11)
	assert.True(t, hit, "two generations old is within the horizon")

	tt.NewSearch()
	_, hit = tt.Probe(11)
	assert.False(t, hit, "three generations old is beyond the horizon")

	// Ages wrap after 32 generations.
	tt.SetHorizon(DefaultHorizon)
	for range 29 {
		tt.NewSearch()
	}
	_, hit = tt.Probe(11)
	assert.True(t, hit)
	assert.Equal(t, uint8(0), relativeAge(tt.Generation(), 0))
}

func TestTTClearAndHashFull(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.NewSearch()
	for i := uint64(0); i < 4000; i++ {
		tt.Store(i, 1, 0, 0, TTExact, board.NoMove, false)
	}
	assert.Positive(t, tt.HashFull())
	tt.Clear()
	assert.Zero(t, tt.HashFull())
	_, hit := tt.Probe(1)
	assert.False(t, hit)
}

func TestTTMateScoreAdjust(t *testing.T) {
	for _, ply := range []int{0, 3, 17} {
		for _, s := range []int{MateScore - 5, -MateScore + 9, 250, -1200} {
			assert.Equal(t, s, AdjustScoreFromTT(AdjustScoreToTT(s, ply), ply))
		}
	}
	assert.Equal(t, MateScore-2, AdjustScoreToTT(MateScore-5, 3))
}

// derivedEntry is what each writer stores for a key, so any hit can be
// checked against the key alone.
func derivedEntry(key uint64) (depth, score int, move board.Move) {
	depth = int(key>>40) % 60
	score = int(key>>48)%20000 - 10000
	move = board.NewMove(board.Square(key%81), board.Square((key>>8)%81))
	return
}

func TestTTConcurrentWritersNeverMixEntries(t *testing.T) {
	tt := NewTranspositionTable(1)
	clusters := uint64(len(tt.clusters))

	keys := make([]uint64, 64)
	for i := range keys {
		// Few clusters, so writers collide constantly.
		keys[i] = frand.Uint64n(1<<40)*clusters + uint64(i%3)
	}

	var wg sync.WaitGroup
	var bad sync.Map
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := frand.NewCustom(make([]byte, 32), 1024, 12)
			for range 20000 {
				k := keys[rng.Intn(len(keys))]
				if rng.Intn(2) == 0 {
					d, s, m := derivedEntry(k)
					tt.Store(k, d, s, 0, TTExact, m, false)
					continue
				}
				if e, hit := tt.Probe(k); hit {
					d, s, m := derivedEntry(k)
					if e.Depth != d || e.Score != s || e.BestMove != m {
						bad.Store(k, e)
					}
				}
			}
		}()
	}
	wg.Wait()

	bad.Range(func(k, v any) bool {
		t.Errorf("key %x read foreign entry %+v", k, v)
		return true
	})
}

// minimax is a fixed-depth negamax over every legal move with material
// leaves and no table. A side with no legal move is mated.
func minimax(pos *board.Position, depth, ply int) int {
	var ml board.MoveList
	pos.GenerateLegal(&ml)
	if ml.Len() == 0 {
		return -MateScore + ply
	}
	if depth == 0 {
		return EvaluateMaterial(pos)
	}
	best := -Infinity
	for _, m := range ml.Slice() {
		undo := pos.MakeMove(m)
		best = max(best, -minimax(pos, depth-1, ply+1))
		pos.UnmakeMove(m, undo)
	}
	return best
}

type boundCheck struct {
	key   uint64
	depth int
	score int
	flag  TTFlag
}

// ttSearch is a PVS over the same tree as minimax that reads and writes tt
// the way the worker does. Every hit it sees is checked against minimax at
// the stored depth; only same-depth entries cut the search, so the root
// value must equal minimax exactly.
type ttSearch struct {
	t       *testing.T
	tt      *TranspositionTable
	checked map[boundCheck]bool
	hits    int
}

func (s *ttSearch) verify(pos *board.Position, e TTEntry, score, ply int) {
	bc := boundCheck{pos.Hash, e.Depth, score, e.Flag}
	if s.checked[bc] {
		return
	}
	s.checked[bc] = true
	s.hits++

	want := minimax(pos, e.Depth, ply)
	switch e.Flag {
	case TTExact:
		require.Equal(s.t, want, score, "exact entry at depth %d in %s", e.Depth, pos.SFEN())
	case TTLowerBound:
		require.GreaterOrEqual(s.t, want, score, "lower bound at depth %d in %s", e.Depth, pos.SFEN())
	case TTUpperBound:
		require.LessOrEqual(s.t, want, score, "upper bound at depth %d in %s", e.Depth, pos.SFEN())
	}
}

func (s *ttSearch) search(pos *board.Position, alpha, beta, depth, ply int) int {
	if e, hit := s.tt.Probe(pos.Hash); hit {
		score := AdjustScoreFromTT(e.Score, ply)
		s.verify(pos, e, score, ply)
		if e.Depth == depth {
			if e.Flag == TTExact {
				return score
			}
			if beta-alpha == 1 && ttBoundAllows(e.Flag, score, beta) {
				return score
			}
		}
	}

	var ml board.MoveList
	pos.GenerateLegal(&ml)
	if ml.Len() == 0 {
		return -MateScore + ply
	}
	if depth == 0 {
		return EvaluateMaterial(pos)
	}

	origAlpha := alpha
	best, bestMove := -Infinity, board.NoMove
	for i, m := range ml.Slice() {
		undo := pos.MakeMove(m)
		var score int
		if i == 0 {
			score = -s.search(pos, -beta, -alpha, depth-1, ply+1)
		} else {
			score = -s.search(pos, -alpha-1, -alpha, depth-1, ply+1)
			if score > alpha && score < beta {
				score = -s.search(pos, -beta, -alpha, depth-1, ply+1)
			}
		}
		pos.UnmakeMove(m, undo)

		if score > best {
			best, bestMove = score, m
		}
		alpha = max(alpha, score)
		if alpha >= beta {
			break
		}
	}

	flag := TTExact
	switch {
	case best >= beta:
		flag = TTLowerBound
	case best <= origAlpha:
		flag = TTUpperBound
	}
	s.tt.Store(pos.Hash, depth, AdjustScoreToTT(best, ply), ValueNone, flag, bestMove, beta-origAlpha > 1)
	return best
}

func TestTTSearchMatchesMinimax(t *testing.T) {
	tests := []struct {
		name     string
		sfen     string
		maxDepth int
	}{
		{"rook trade", "4k4/9/9/9/4r4/9/9/4R4/4K4 b - 1", 3},
		{"gold and pawns", "3gk4/9/3pp4/9/9/9/4PP3/9/4KG3 b - 1", 3},
		{"mate in one", "4k4/9/4P4/9/9/9/9/9/4K4 b G 1", 2},
		{"drops both sides", "4k4/9/9/9/9/9/9/9/4K4 w Sp 1", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustParse(t, tc.sfen)
			s := &ttSearch{t: t, tt: NewTranspositionTable(1), checked: make(map[boundCheck]bool)}

			// Iterative deepening fills the table with shallower entries first.
			for depth := 1; depth <= tc.maxDepth; depth++ {
				s.tt.NewSearch()
				want := minimax(pos, depth, 0)
				got := s.search(pos, -Infinity, Infinity, depth, 0)
				require.Equal(t, want, got, "depth %d", depth)

				// A second pass answers from the table.
				require.Equal(t, want, s.search(pos, -Infinity, Infinity, depth, 0), "depth %d rerun", depth)
			}
			assert.Positive(t, s.hits, "table never hit")
		})
	}
}

func TestSearchMateMatchesMinimax(t *testing.T) {
	for _, sfen := range []string{
		"8k/9/8P/9/9/9/9/9/4K4 b G 1",
		"k8/9/P8/9/9/9/9/9/4K4 b G 1",
		"4k4/9/4P4/9/9/9/9/9/4K4 b G 1",
	} {
		pos := mustParse(t, sfen)
		want := minimax(pos, 1, 0)
		require.Equal(t, MateScore-1, want, sfen)

		res, err := newMaterialEngine(2).Go(context.Background(), pos, Limits{Depth: 4})
		require.NoError(t, err)
		assert.Equal(t, want, res.Score, sfen)
	}
}
