// Package nnue implements the incrementally updated neural network evaluator.
package nnue

import "github.com/hailam/shogiplay/internal/board"

// Evaluator owns one accumulator stack over a shared read-only Network.
// Each search thread needs its own Evaluator.
type Evaluator struct {
	net   *Network
	stack AccumulatorStack
	k     kernels
}

// NewEvaluator creates an evaluator using the fastest kernels the CPU supports.
func NewEvaluator(net *Network) *Evaluator {
	return &Evaluator{net: net, k: defaultKernels()}
}

// Network returns the weights this evaluator reads.
func (e *Evaluator) Network() *Network {
	return e.net
}

// SetAccelerated selects the accelerated kernels, or the scalar reference
// when false. It is a no-op for true on a CPU without acceleration.
func (e *Evaluator) SetAccelerated(on bool) {
	if on && HasAcceleration() {
		e.k = accelKernels
	} else {
		e.k = scalarKernels
	}
}

// Reset drops the stack. The next Evaluate or Refresh recomputes the root.
func (e *Evaluator) Reset() {
	e.stack.Reset()
}

// Push opens a new ply. Call before MakeMove or MakeNullMove.
func (e *Evaluator) Push() {
	e.stack.Push()
}

// Pop returns to the previous ply. Call after UnmakeMove.
func (e *Evaluator) Pop() {
	e.stack.Pop()
}

// Update fills the current ply's accumulator from its parent and the dirty
// list of the move just made on pos. A null move passes an empty list.
func (e *Evaluator) Update(pos *board.Position, d *board.DirtyPiece) {
	acc := e.stack.Current()
	prev := e.stack.Parent()
	for c := board.Black; c <= board.White; c++ {
		if prev == nil {
			acc.refresh(pos, c, e.net, e.k)
			continue
		}
		acc.update(prev, pos, d, c, e.net, e.k)
	}
}

// Refresh recomputes the current accumulator from scratch.
func (e *Evaluator) Refresh(pos *board.Position) {
	acc := e.stack.Current()
	acc.refresh(pos, board.Black, e.net, e.k)
	acc.refresh(pos, board.White, e.net, e.k)
}

// Evaluate returns the network score of pos from the side to move's view.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	acc := e.stack.Current()
	for c := board.Black; c <= board.White; c++ {
		if !acc.Computed[c] {
			acc.refresh(pos, c, e.net, e.k)
		}
	}
	us := pos.SideToMove
	return e.net.forward(&acc.Values[us], &acc.Values[us.Other()], Bucket(pos.PieceCountOnBoard()), e.k)
}

// Current returns the accumulator of the current ply.
func (e *Evaluator) Current() *Accumulator {
	return e.stack.Current()
}

// EvaluateFull scores pos with a fresh accumulator, leaving the stack untouched.
func (e *Evaluator) EvaluateFull(pos *board.Position) int {
	var acc Accumulator
	acc.refresh(pos, board.Black, e.net, e.k)
	acc.refresh(pos, board.White, e.net, e.k)
	us := pos.SideToMove
	return e.net.forward(&acc.Values[us], &acc.Values[us.Other()], Bucket(pos.PieceCountOnBoard()), e.k)
}
