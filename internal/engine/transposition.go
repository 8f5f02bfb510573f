package engine

import (
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hailam/shogiplay/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
// The zero value marks an empty slot.
type TTFlag uint8

const (
	TTNone       TTFlag = iota
	TTUpperBound        // Failed low
	TTLowerBound        // Failed high (beta cutoff)
	TTExact             // Exact score
)

const (
	clusterSize  = 4
	clusterBytes = 64

	// Generation counter layout: the high five bits of genBound8 hold the
	// generation, the low three hold the pv flag and bound.
	generationDelta = 8
	generationCycle = 255 + generationDelta
	generationMask  = 0xF8

	// DefaultHorizon accepts entries of every generation still representable.
	DefaultHorizon = 31

	depthOffset = -8
)

// TTEntry is a decoded transposition table slot.
type TTEntry struct {
	BestMove board.Move
	Score    int
	Eval     int
	Depth    int
	Flag     TTFlag
	IsPV     bool
}

// ttSlot stores key^data and data as two independent atomic words. A reader
// accepts the slot only when the XOR of both words reproduces its key, so a
// write torn between two stores reads as a miss, never as foreign data.
type ttSlot struct {
	check atomic.Uint64
	data  atomic.Uint64
}

// scheduler runs between the two word writes of a slot. The implementation
// is selected by build tag.
type scheduler interface {
	Yield()
}

type ttCluster struct {
	slots [clusterSize]ttSlot
}

// TranspositionTable is a lock-free hash table for storing search results,
// shared by every search thread.
type TranspositionTable struct {
	clusters   []ttCluster
	mask       uint64
	generation atomic.Uint32 // generation8, a multiple of generationDelta
	maxAge     uint32        // relative ages above this are misses
	sched      scheduler
}

// packData packs an entry into one word:
// bits 0-15 move, 16-31 score, 32-47 eval, 48-55 depth, 56-63 genBound8.
func packData(move board.Move, score, eval, depth int, genBound uint8) uint64 {
	return uint64(move) |
		uint64(uint16(int16(score)))<<16 |
		uint64(uint16(int16(eval)))<<32 |
		uint64(uint8(depth-depthOffset))<<48 |
		uint64(genBound)<<56
}

func dataGenBound(d uint64) uint8 { return uint8(d >> 56) }
func dataFlag(d uint64) TTFlag    { return TTFlag(d >> 56 & 3) }
func dataDepth(d uint64) int      { return int(uint8(d>>48)) + depthOffset }
func dataMove(d uint64) board.Move {
	return board.Move(uint16(d))
}

func decodeData(d uint64) TTEntry {
	return TTEntry{
		BestMove: dataMove(d),
		Score:    int(int16(uint16(d >> 16))),
		Eval:     int(int16(uint16(d >> 32))),
		Depth:    dataDepth(d),
		Flag:     dataFlag(d),
		IsPV:     d>>56&4 != 0,
	}
}

// relativeAge returns how many generations (times 8) ago genBound was
// written, wrapping after 32 generations.
func relativeAge(generation, genBound uint8) uint8 {
	return uint8((generationCycle + int(generation) - int(genBound)) & generationMask)
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{sched: ttScheduler}
	tt.SetHorizon(DefaultHorizon)
	tt.Resize(sizeMB)
	return tt
}

// Resize reallocates the table, discarding its contents. The size is
// rounded down to a power of two clusters and capped at half of system memory.
func (tt *TranspositionTable) Resize(sizeMB int) {
	bytes := uint64(lo.Max([]int{sizeMB, 1})) << 20
	if total := memory.TotalMemory(); total > 0 && bytes > total/2 {
		bytes = total / 2
	}
	n := roundDownToPowerOf2(bytes / clusterBytes)
	if n == 0 {
		n = 1
	}
	tt.clusters = make([]ttCluster, n)
	tt.mask = n - 1
	tt.generation.Store(0)

	log.Debug().Uint64("clusters", n).
		Uint64("bytes", n*clusterBytes).
		Int("requested-mb", sizeMB).
		Msg("transposition-table-size")
}

// SetHorizon sets how many generations old an entry may be and still hit.
func (tt *TranspositionTable) SetHorizon(generations int) {
	tt.maxAge = uint32(lo.Clamp(generations, 0, DefaultHorizon)) * generationDelta
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (tt *TranspositionTable) cluster(hash uint64) *ttCluster {
	return &tt.clusters[hash&tt.mask]
}

// Prefetch touches the cluster of hash ahead of a probe. Skipping it is always safe.
func (tt *TranspositionTable) Prefetch(hash uint64) {
	_ = tt.cluster(hash).slots[0].data.Load()
}

// Probe looks up a position in the transposition table.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	gen := uint8(tt.generation.Load())
	cl := tt.cluster(hash)
	for i := range cl.slots {
		s := &cl.slots[i]
		d := s.data.Load()
		if s.check.Load()^d != hash || dataFlag(d) == TTNone {
			continue
		}
		if uint32(relativeAge(gen, dataGenBound(d))) > tt.maxAge {
			return TTEntry{}, false
		}
		return decodeData(d), true
	}
	return TTEntry{}, false
}

// Store saves a position in the transposition table.
func (tt *TranspositionTable) Store(hash uint64, depth, score, eval int, flag TTFlag, move board.Move, pv bool) {
	gen := uint8(tt.generation.Load())
	cl := tt.cluster(hash)

	// Replacement: the slot already holding this key, else an empty slot,
	// else the oldest, else the shallowest.
	var target *ttSlot
	var old uint64
	sameKey := false
	bestAge, bestDepth := -1, 1<<30
	for i := range cl.slots {
		s := &cl.slots[i]
		d := s.data.Load()
		if dataFlag(d) == TTNone {
			if bestAge < 256 {
				target, old, bestAge = s, d, 256
			}
			continue
		}
		if s.check.Load()^d == hash {
			target, old, sameKey = s, d, true
			break
		}
		age := int(relativeAge(gen, dataGenBound(d)))
		if age > bestAge || (age == bestAge && dataDepth(d) < bestDepth) {
			target, old, bestAge, bestDepth = s, d, age, dataDepth(d)
		}
	}

	if sameKey {
		if move == board.NoMove {
			move = dataMove(old)
		}
		oldDepth := dataDepth(old)
		pvBonus := 0
		if pv {
			pvBonus = 2
		}
		if flag != TTExact && depth+pvBonus <= oldDepth-4 && relativeAge(gen, dataGenBound(old)) == 0 {
			// Keep the deeper data; only refresh its move.
			if move == dataMove(old) {
				return
			}
			e := decodeData(old)
			tt.write(target, hash, packData(move, e.Score, e.Eval, e.Depth, dataGenBound(old)))
			return
		}
	}

	genBound := gen | uint8(flag)
	if pv {
		genBound |= 4
	}
	depth = lo.Clamp(depth, depthOffset, 255+depthOffset)
	tt.write(target, hash, packData(move, score, eval, depth, genBound))
}

func (tt *TranspositionTable) write(s *ttSlot, hash, d uint64) {
	s.check.Store(hash ^ d)
	tt.sched.Yield()
	s.data.Store(d)
}

// NewSearch advances the generation. Relative ages wrap every 32 searches.
func (tt *TranspositionTable) NewSearch() {
	tt.generation.Add(generationDelta)
}

// Generation returns the current generation counter.
func (tt *TranspositionTable) Generation() uint8 {
	return uint8(tt.generation.Load())
}

// Clear clears the transposition table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.clusters {
		for j := range tt.clusters[i].slots {
			tt.clusters[i].slots[j].check.Store(0)
			tt.clusters[i].slots[j].data.Store(0)
		}
	}
	tt.generation.Store(0)
}

// HashFull returns the permille of sampled slots written in the current generation.
func (tt *TranspositionTable) HashFull() int {
	sample := lo.Min([]int{1000, len(tt.clusters)})
	gen := uint8(tt.generation.Load())
	used := 0
	for i := 0; i < sample; i++ {
		for j := range tt.clusters[i].slots {
			d := tt.clusters[i].slots[j].data.Load()
			if dataFlag(d) != TTNone && relativeAge(gen, dataGenBound(d)) == 0 {
				used++
			}
		}
	}
	return used * 1000 / (sample * clusterSize)
}

// Size returns the number of slots in the table.
func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.clusters)) * clusterSize
}

// AdjustScoreFromTT converts a stored mate score back to distance from the current ply.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT stores mate scores as distance from the node instead of the root.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
