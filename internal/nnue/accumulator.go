package nnue

import "github.com/hailam/shogiplay/internal/board"

// Accumulator stores the feature transformer output for both perspectives,
// indexed by color. Values wrap on int16 overflow, so an incrementally
// updated accumulator always equals a full recomputation.
type Accumulator struct {
	Values   [2][L1Size]int16
	Computed [2]bool
}

// MaxStackDepth bounds the accumulator stack during a search.
const MaxStackDepth = 256

// AccumulatorStack manages accumulators during search, one per ply.
type AccumulatorStack struct {
	stack [MaxStackDepth]Accumulator
	top   int
}

// Push opens the accumulator of the next ply. It is filled by Update.
func (s *AccumulatorStack) Push() {
	s.top++
	s.stack[s.top].Computed = [2]bool{}
}

// Pop returns to the previous ply's accumulator.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Current returns the accumulator of the current ply.
func (s *AccumulatorStack) Current() *Accumulator {
	return &s.stack[s.top]
}

// Parent returns the accumulator one ply below the current one, or nil at the root.
func (s *AccumulatorStack) Parent() *Accumulator {
	if s.top == 0 {
		return nil
	}
	return &s.stack[s.top-1]
}

// Depth returns the number of pushed plies.
func (s *AccumulatorStack) Depth() int {
	return s.top
}

// Reset drops every ply and invalidates the root accumulator.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.stack[0].Computed = [2]bool{}
}

// refresh recomputes one perspective from scratch.
func (acc *Accumulator) refresh(pos *board.Position, perspective board.Color, net *Network, k kernels) {
	var buf [MaxActive]int
	feats := ActiveFeatures(pos, perspective, buf[:0])

	v := &acc.Values[perspective]
	*v = net.FTBias
	for _, f := range feats {
		k.addRow(v, net.ftRow(f))
	}
	acc.Computed[perspective] = true
}

// update derives one perspective from prev by applying the dirty list of
// the move that led to pos. A king move of that perspective needs a refresh.
func (acc *Accumulator) update(prev *Accumulator, pos *board.Position, d *board.DirtyPiece,
	perspective board.Color, net *Network, k kernels) {
	if d.KingMoved[perspective] || !prev.Computed[perspective] {
		acc.refresh(pos, perspective, net, k)
		return
	}

	ksq := pos.KingSquare[perspective]
	v := &acc.Values[perspective]
	*v = prev.Values[perspective]
	for i := 0; i < d.NumRemoved; i++ {
		if f, ok := itemIndex(perspective, ksq, d.Removed[i]); ok {
			k.subRow(v, net.ftRow(f))
		}
	}
	for i := 0; i < d.NumAdded; i++ {
		if f, ok := itemIndex(perspective, ksq, d.Added[i]); ok {
			k.addRow(v, net.ftRow(f))
		}
	}
	acc.Computed[perspective] = true
}
