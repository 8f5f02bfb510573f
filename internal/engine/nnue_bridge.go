package engine

import (
	"github.com/hailam/shogiplay/internal/board"
	"github.com/hailam/shogiplay/internal/nnue"
)

// Evaluator is the static evaluation a worker drives alongside its
// position. Push and Pop bracket every MakeMove/UnmakeMove pair; Update
// consumes the dirty list of the move just made.
type Evaluator interface {
	Reset(pos *board.Position)
	Push()
	Pop()
	Update(pos *board.Position, d *board.DirtyPiece)
	Evaluate(pos *board.Position) int
}

// EvaluatorFactory builds one Evaluator per search worker.
type EvaluatorFactory func() Evaluator

// nnueEvaluator adapts nnue.Evaluator to the worker's interface.
type nnueEvaluator struct {
	*nnue.Evaluator
}

// NNUEFactory returns a factory whose evaluators share net read-only.
func NNUEFactory(net *nnue.Network) EvaluatorFactory {
	return func() Evaluator {
		return nnueEvaluator{nnue.NewEvaluator(net)}
	}
}

// MaterialFactory returns a factory of material-only evaluators.
func MaterialFactory() EvaluatorFactory {
	return func() Evaluator { return MaterialEvaluator{} }
}

func (e nnueEvaluator) Reset(pos *board.Position) {
	e.Evaluator.Reset()
	e.Evaluator.Refresh(pos)
}

// makeMove applies m to the worker position with the evaluator kept in step.
func (w *Worker) makeMove(m board.Move, ply int) {
	w.eval.Push()
	w.undoStack[ply] = w.pos.MakeMove(m)
	w.eval.Update(w.pos, &w.undoStack[ply].Dirty)
	w.tt.Prefetch(w.pos.Hash)
}

func (w *Worker) unmakeMove(m board.Move, ply int) {
	w.pos.UnmakeMove(m, w.undoStack[ply])
	w.eval.Pop()
}

func (w *Worker) makeNullMove() board.NullMoveUndo {
	w.eval.Push()
	undo := w.pos.MakeNullMove()
	w.eval.Update(w.pos, &board.DirtyPiece{})
	w.tt.Prefetch(w.pos.Hash)
	return undo
}

func (w *Worker) unmakeNullMove(undo board.NullMoveUndo) {
	w.pos.UnmakeNullMove(undo)
	w.eval.Pop()
}

// evaluate returns the clamped static evaluation, consulting the eval cache.
func (w *Worker) evaluate() int {
	if v, ok := w.evalCache.Probe(w.pos.Hash); ok {
		return v
	}
	v := w.eval.Evaluate(w.pos)
	v = max(-MateInMaxPly+1, min(v, MateInMaxPly-1))
	w.evalCache.Store(w.pos.Hash, v)
	return v
}
