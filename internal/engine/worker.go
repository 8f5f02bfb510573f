package engine

import (
	"slices"
	"sync/atomic"

	"lukechampine.com/frand"

	"github.com/hailam/shogiplay/internal/board"
)

// Worker represents a search worker for parallel Lazy SMP search.
// Each worker has its own position, evaluator and history tables, and
// shares only the transposition table and the stop flag.
type Worker struct {
	id int

	// Per-worker position copy
	pos *board.Position

	hist      *HistoryTables
	corr      *CorrectionHistory
	eval      Evaluator
	evalCache *EvalCache

	// Shared resources
	tt       *TranspositionTable
	stopFlag *atomic.Bool

	// onPoll runs every stopPollMask+1 nodes; the main worker checks time there.
	onPoll func()

	nodes    atomic.Uint64
	selDepth int
	pv       PVTable

	undoStack [MaxPly + 1]board.UndoInfo
	stack     [MaxPly + stackOffset + 2]stackEntry

	rootMoves      []RootMove
	rootDepth      int
	multiPV        int // lines searched per depth, 1 for helpers
	pvIdx          int // root line being searched
	completedDepth int
	declaration    bool // entering-king declarations are scored

	bestMove  board.Move
	bestScore int
	bestPV    []board.Move
}

// NewWorker creates a new search worker.
func NewWorker(id int, tt *TranspositionTable, eval Evaluator, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		id:        id,
		hist:      NewHistoryTables(),
		corr:      NewCorrectionHistory(),
		eval:      eval,
		evalCache: NewEvalCache(1),
		tt:        tt,
		stopFlag:  stopFlag,
	}
}

// ID returns the worker's ID.
func (w *Worker) ID() int {
	return w.id
}

// Nodes returns the number of nodes searched by this worker. Safe to call
// while the worker runs.
func (w *Worker) Nodes() uint64 {
	return w.nodes.Load()
}

// Clear forgets everything learned, as for a new game.
func (w *Worker) Clear() {
	w.hist.Clear()
	w.corr.Clear()
	w.evalCache.Clear()
}

// SetEvaluator swaps the evaluator and drops cached evaluations.
func (w *Worker) SetEvaluator(e Evaluator) {
	w.eval = e
	w.evalCache.Clear()
}

// InitSearch prepares the worker for a new search from pos. Helpers get a
// shuffled root order so that lazy SMP threads diverge.
func (w *Worker) InitSearch(pos *board.Position, rootMoves []board.Move) {
	w.pos = pos.Copy()
	w.eval.Reset(w.pos)
	w.nodes.Store(0)
	w.selDepth = 0
	w.completedDepth = 0
	w.bestMove = board.NoMove
	w.bestScore = -Infinity
	w.bestPV = nil
	w.multiPV = 1
	w.pvIdx = 0
	w.hist.ClearLowPly()

	w.rootMoves = w.rootMoves[:0]
	for _, m := range rootMoves {
		w.rootMoves = append(w.rootMoves, RootMove{Move: m, Score: -Infinity, PrevScore: -Infinity})
	}
	if w.id > 0 {
		frand.Shuffle(len(w.rootMoves), func(i, j int) {
			w.rootMoves[i], w.rootMoves[j] = w.rootMoves[j], w.rootMoves[i]
		})
	}

	sentinel := w.hist.Sentinel()
	for i := range w.stack {
		w.stack[i] = stackEntry{contHist: sentinel, staticEval: ValueNone}
	}
}

// ss returns the stack entry of ply, which may be negative down to -stackOffset.
func (w *Worker) ss(ply int) *stackEntry {
	return &w.stack[ply+stackOffset]
}

// stopped polls the stop flag, running onPoll every few thousand nodes.
func (w *Worker) stopped() bool {
	if w.nodes.Load()&stopPollMask == 0 && w.onPoll != nil {
		w.onPoll()
	}
	return w.stopFlag.Load()
}

// IterationResult is reported by the main worker after each completed depth.
type IterationResult struct {
	Depth    int
	SelDepth int
	Score    int
	Move     board.Move
	PV       []board.Move
	Lines    []RootMove // the best MultiPV root moves, best first
}

// iterate runs iterative deepening up to maxDepth or until stopped. After
// each completed iteration, done is called; returning true ends the search.
func (w *Worker) iterate(maxDepth int, done func(IterationResult) bool) {
	if len(w.rootMoves) == 0 {
		return
	}
	// Until an iteration completes, the first root move is the answer.
	w.bestMove = w.rootMoves[0].Move
	multiPV := min(max(w.multiPV, 1), len(w.rootMoves))

	for depth := 1; depth <= maxDepth && depth < MaxPly; depth++ {
		// Helpers skip some depths so threads spread over the tree.
		if w.id > 0 && depth > 1 && (depth+w.id)%4 == 0 {
			continue
		}
		w.rootDepth = depth
		w.selDepth = 0
		for i := range w.rootMoves {
			w.rootMoves[i].PrevScore = w.rootMoves[i].Score
		}

		for w.pvIdx = 0; w.pvIdx < multiPV; w.pvIdx++ {
			w.aspiration(depth)
			if w.stopFlag.Load() {
				break
			}
			// Lines found so far stay ordered ahead of the unsearched moves.
			slices.SortStableFunc(w.rootMoves[:w.pvIdx+1], byScore)
		}
		if w.stopFlag.Load() {
			break
		}

		w.completedDepth = depth
		w.bestMove = w.rootMoves[0].Move
		w.bestScore = w.rootMoves[0].Score
		w.bestPV = w.rootMoves[0].PV

		if done != nil && done(IterationResult{
			Depth:    depth,
			SelDepth: w.selDepth,
			Score:    w.bestScore,
			Move:     w.bestMove,
			PV:       w.bestPV,
			Lines:    slices.Clone(w.rootMoves[:multiPV]),
		}) {
			break
		}
	}
}

// aspiration searches the root line pvIdx at depth inside a window around
// its previous score, widening it on failure.
func (w *Worker) aspiration(depth int) int {
	alpha, beta := -Infinity, Infinity
	delta := aspirationWindow
	prev := w.rootMoves[w.pvIdx].PrevScore
	if depth >= aspirationMinDepth && prev > -Infinity {
		alpha = max(prev-delta, -Infinity)
		beta = min(prev+delta, Infinity)
	}

	for {
		score := w.rootSearch(depth, alpha, beta)
		w.sortRootMoves()
		if w.stopFlag.Load() {
			return score
		}
		switch {
		case score <= alpha:
			beta = (alpha + beta) / 2
			alpha = max(score-delta, -Infinity)
		case score >= beta:
			beta = min(score+delta, Infinity)
		default:
			return score
		}
		delta += delta / 2
	}
}

// sortRootMoves orders the moves not yet claimed by an earlier line.
func (w *Worker) sortRootMoves() {
	slices.SortStableFunc(w.rootMoves[w.pvIdx:], byScore)
}

func byScore(a, b RootMove) int {
	return b.Score - a.Score
}

// rootSearch searches the root moves from pvIdx on. Moves that fail low keep
// -Infinity as their score so the sort keeps the best-known moves first.
func (w *Worker) rootSearch(depth, alpha, beta int) int {
	w.pv.length[0] = 0
	inCheck := w.pos.InCheck()
	w.ss(0).inCheck = inCheck
	w.ss(0).staticEval = ValueNone

	bestScore := -Infinity
	bestMove := board.NoMove
	origAlpha := alpha

	for i := w.pvIdx; i < len(w.rootMoves); i++ {
		first := i == w.pvIdx
		rm := &w.rootMoves[i]
		m := rm.Move

		w.nodes.Add(1)
		w.ss(0).currentMove = m
		w.ss(0).contHist = w.hist.ContinuationFor(w.pos.MovedPieceAfter(m), m.To())
		w.pv.length[1] = 1

		newDepth := depth - 1
		if inCheck {
			newDepth++
		}

		w.makeMove(m, 0)
		var score int
		if first {
			score = -w.search(true, newDepth, 1, -beta, -alpha, false)
		} else {
			r := 0
			if depth >= 3 && !w.pos.InCheck() && w.undoStack[0].Captured == board.NoPiece {
				r = lmrReductions[min(depth, 63)][min(i-w.pvIdx+1, 63)]
			}
			score = -w.search(false, max(newDepth-r, 1), 1, -alpha-1, -alpha, true)
			if score > alpha && r > 0 {
				score = -w.search(false, newDepth, 1, -alpha-1, -alpha, false)
			}
			if score > alpha && score < beta {
				w.pv.length[1] = 1
				score = -w.search(true, newDepth, 1, -beta, -alpha, false)
			}
		}
		w.unmakeMove(m, 0)

		if w.stopFlag.Load() {
			return bestScore
		}

		if first || score > alpha {
			rm.Score = score
			rm.SelDepth = w.selDepth
			w.pv.update(0, m)
			rm.PV = w.pv.line(0)
		} else {
			rm.Score = -Infinity
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				bestMove = m
				if score >= beta {
					break
				}
				alpha = score
			}
		}
	}

	// Later lines exclude the best moves, so only the first bounds the root.
	if w.pvIdx > 0 {
		return bestScore
	}
	flag := TTUpperBound
	switch {
	case bestScore >= beta:
		flag = TTLowerBound
	case bestScore > origAlpha:
		flag = TTExact
	}
	w.tt.Store(w.pos.Hash, depth, AdjustScoreToTT(bestScore, 0), ValueNone, flag, bestMove, true)
	return bestScore
}

// search implements negamax alpha-beta with principal-variation search.
func (w *Worker) search(pvNode bool, depth, ply, alpha, beta int, cutNode bool) int {
	if depth <= 0 {
		return w.qsearch(pvNode, ply, alpha, beta)
	}

	w.nodes.Add(1)
	if w.stopped() {
		return 0
	}
	if pvNode {
		w.pv.length[ply] = ply
		w.selDepth = max(w.selDepth, ply+1)
	}

	pos := w.pos
	inCheck := pos.InCheck()
	ss := w.ss(ply)
	ss.inCheck = inCheck

	if ply >= MaxPly {
		if inCheck {
			return 0
		}
		return w.evaluate()
	}

	// Draws and wins by rule
	switch pos.Repetition() {
	case board.RepDraw:
		return 0
	case board.RepWin:
		return MateScore - ply
	case board.RepLose:
		return -MateScore + ply
	}
	if w.declaration && pos.DeclarationWin() {
		return MateScore - ply - 1
	}

	// Mate distance pruning
	alpha = max(-MateScore+ply, alpha)
	beta = min(MateScore-ply-1, beta)
	if alpha >= beta {
		return alpha
	}

	// Probe transposition table
	ttEntry, ttHit := w.tt.Probe(pos.Hash)
	ttMove := board.NoMove
	ttScore := ValueNone
	if ttHit {
		ttMove = ttEntry.BestMove
		ttScore = AdjustScoreFromTT(ttEntry.Score, ply)
	}
	ttPv := pvNode || (ttHit && ttEntry.IsPV)

	if !pvNode && ttHit && ttEntry.Depth >= depth && ttBoundAllows(ttEntry.Flag, ttScore, beta) {
		return ttScore
	}

	// Static evaluation for pruning decisions
	rawEval, eval := ValueNone, ValueNone
	improving := false
	if inCheck {
		ss.staticEval = ValueNone
	} else {
		if ttHit && ttEntry.Eval != ValueNone {
			rawEval = ttEntry.Eval
		} else {
			rawEval = w.evaluate()
		}
		ss.staticEval = clampEval(rawEval + w.corr.Get(pos))
		eval = ss.staticEval
		if ttHit && ttBoundAllows(ttEntry.Flag, ttScore, eval) {
			eval = ttScore
		}
		if prev := w.ss(ply - 2).staticEval; prev != ValueNone {
			improving = ss.staticEval > prev
		}
	}

	if !pvNode && !inCheck {
		// Razoring
		if depth <= 2 && eval+razorBase+razorPerDepth*depth <= alpha {
			score := w.qsearch(false, ply, alpha, alpha+1)
			if score <= alpha {
				return score
			}
		}

		// Reverse Futility Pruning
		margin := rfpMargin * depth
		if improving {
			margin -= rfpMargin / 4
		}
		if !ttPv && depth <= rfpMaxDepth && eval-margin >= beta && eval < MateInMaxPly {
			return eval
		}

		// Null Move Pruning
		if depth >= nmpMinDepth && eval >= beta && w.ss(ply-1).currentMove != board.NullMove &&
			beta > -MateInMaxPly {
			r := 3 + depth/4
			ss.currentMove = board.NullMove
			ss.contHist = w.hist.Sentinel()
			undo := w.makeNullMove()
			nullScore := -w.search(false, depth-1-r, ply+1, -beta, -beta+1, !cutNode)
			w.unmakeNullMove(undo)
			if w.stopFlag.Load() {
				return 0
			}
			if nullScore >= beta && nullScore < MateInMaxPly {
				return nullScore
			}
		}
	}

	// Internal Iterative Deepening (IID)
	if pvNode && depth >= 4 && ttMove == board.NoMove {
		w.search(true, depth-2, ply, alpha, beta, cutNode)
		if e, ok := w.tt.Probe(pos.Hash); ok {
			ttMove = e.BestMove
		}
		w.pv.length[ply] = ply
	}

	var cont [6]*PieceToHistory
	for i := range cont {
		cont[i] = w.ss(ply - 1 - i).contHist
	}
	counter := board.NoMove
	if prev := w.ss(ply - 1).currentMove; prev.IsOK() {
		counter = w.hist.CounterMove(pos.PieceAt(prev.To()), prev.To())
	}

	var mp MovePicker
	mp.InitMain(pos, w.hist, &cont, ttMove, depth, ply, w.hist.Killers(ply), counter)
	pinned := pos.Pinned(pos.SideToMove)
	us := pos.SideToMove

	var quietsTried, capturesTried [32]board.Move
	nQuiets, nCaptures := 0, 0
	bestScore := -Infinity
	bestMove := board.NoMove
	moveCount := 0

	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		if !pos.IsLegalFast(m, pinned) {
			continue
		}
		moveCount++

		tactical := pos.IsCaptureOrPawnPromotion(m)
		givesCheck := givesDirectCheck(pos, m)
		pc := pos.MovedPieceAfter(m)
		to := m.To()

		newDepth := depth - 1
		if inCheck && ply < 2*w.rootDepth {
			newDepth++
		}

		// Shallow-depth pruning
		if ply > 0 && bestScore > -MateInMaxPly && !inCheck {
			if depth < len(lmpThreshold) && !mp.skipQuiets {
				threshold := lmpThreshold[depth]
				if !improving {
					threshold = threshold * 2 / 3
				}
				if moveCount > max(threshold, 1) {
					mp.SkipQuiets()
				}
			}

			if tactical || givesCheck {
				// SEE pruning
				if depth <= 6 && !SEEGE(pos, m, -200*depth) {
					continue
				}
			} else {
				// Futility Pruning
				if depth < len(futilityMargin) && ss.staticEval+futilityMargin[depth] <= alpha {
					continue
				}
				// History Pruning
				if depth <= 3 && cont[0].Get(pc, to)+cont[1].Get(pc, to) < historyPruningThreshold*depth {
					continue
				}
				if !SEEGE(pos, m, -30*depth*depth) {
					continue
				}
			}
		}

		ss.currentMove = m
		ss.contHist = w.hist.ContinuationFor(pc, to)
		histScore := 0
		if !tactical {
			histScore = 2*w.hist.Main.Get(us, m) + cont[0].Get(pc, to) + cont[1].Get(pc, to)
		}

		w.makeMove(m, ply)
		w.pv.length[ply+1] = ply + 1

		var score int
		doFull := !pvNode || moveCount > 1

		// Late Move Reduction (LMR)
		if depth >= 2 && moveCount > 1+btoi(pvNode) && (!tactical || cutNode) {
			r := lmrReductions[min(depth, 63)][min(moveCount, 63)]
			if !improving {
				r++
			}
			if ttPv {
				r--
			}
			if cutNode {
				r++
			}
			if givesCheck {
				r--
			}
			r -= histScore / 8192
			d := max(1, min(newDepth-r, newDepth+1))

			score = -w.search(false, d, ply+1, -alpha-1, -alpha, true)
			doFull = score > alpha && d < newDepth
		}

		if doFull {
			score = -w.search(false, newDepth, ply+1, -alpha-1, -alpha, !cutNode)
		}

		if pvNode && (moveCount == 1 || score > alpha) {
			w.pv.length[ply+1] = ply + 1
			score = -w.search(true, newDepth, ply+1, -beta, -alpha, false)
		}

		w.unmakeMove(m, ply)

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				bestMove = m
				if pvNode {
					w.pv.update(ply, m)
				}
				if score >= beta {
					break
				}
				alpha = score
			}
		}

		if m != bestMove {
			if tactical && nCaptures < len(capturesTried) {
				capturesTried[nCaptures] = m
				nCaptures++
			} else if !tactical && nQuiets < len(quietsTried) {
				quietsTried[nQuiets] = m
				nQuiets++
			}
		}
	}

	// No legal move loses, in check or not
	if moveCount == 0 {
		return -MateScore + ply
	}

	if bestMove != board.NoMove {
		w.updateAllStats(ply, depth, moveCount, bestMove, ttMove, inCheck,
			quietsTried[:nQuiets], capturesTried[:nCaptures])
	}

	flag := TTUpperBound
	switch {
	case bestScore >= beta:
		flag = TTLowerBound
	case pvNode && bestMove != board.NoMove:
		flag = TTExact
	}

	if !inCheck && (bestMove == board.NoMove || !pos.IsCaptureOrPawnPromotion(bestMove)) &&
		!(flag == TTLowerBound && bestScore <= ss.staticEval) &&
		!(flag == TTUpperBound && bestScore >= ss.staticEval) {
		w.corr.Update(pos, bestScore, ss.staticEval, depth)
	}

	w.tt.Store(pos.Hash, depth, AdjustScoreToTT(bestScore, ply), rawEval, flag, bestMove, ttPv)
	return bestScore
}

// qsearch searches captures and pawn promotions, or every evasion when in
// check, until the position is quiet.
func (w *Worker) qsearch(pvNode bool, ply, alpha, beta int) int {
	w.nodes.Add(1)
	if w.stopped() {
		return 0
	}
	if pvNode {
		w.pv.length[ply] = ply
		w.selDepth = max(w.selDepth, ply+1)
	}

	pos := w.pos
	inCheck := pos.InCheck()
	ss := w.ss(ply)
	ss.inCheck = inCheck

	if ply >= MaxPly {
		if inCheck {
			return 0
		}
		return w.evaluate()
	}

	switch pos.Repetition() {
	case board.RepDraw:
		return 0
	case board.RepWin:
		return MateScore - ply
	case board.RepLose:
		return -MateScore + ply
	}

	ttEntry, ttHit := w.tt.Probe(pos.Hash)
	ttMove := board.NoMove
	ttScore := ValueNone
	if ttHit {
		ttMove = ttEntry.BestMove
		ttScore = AdjustScoreFromTT(ttEntry.Score, ply)
		if !pvNode && ttEntry.Depth >= 0 && ttBoundAllows(ttEntry.Flag, ttScore, beta) {
			return ttScore
		}
	}

	if !inCheck && !ttHit {
		if m := pos.Mate1Ply(); m != board.NoMove {
			score := MateScore - (ply + 1)
			if pvNode {
				w.pv.length[ply+1] = ply + 1
				w.pv.update(ply, m)
			}
			w.tt.Store(pos.Hash, 0, AdjustScoreToTT(score, ply), ValueNone, TTExact, m, pvNode)
			return score
		}
	}

	rawEval := ValueNone
	bestScore := -Infinity
	futilityBase := -Infinity
	if !inCheck {
		// Stand pat
		if ttHit && ttEntry.Eval != ValueNone {
			rawEval = ttEntry.Eval
		} else {
			rawEval = w.evaluate()
		}
		ss.staticEval = clampEval(rawEval + w.corr.Get(pos))
		bestScore = ss.staticEval
		if ttHit && ttBoundAllows(ttEntry.Flag, ttScore, bestScore) {
			bestScore = ttScore
		}
		if bestScore >= beta {
			return bestScore
		}
		alpha = max(alpha, bestScore)
		futilityBase = ss.staticEval + qsearchDeltaMargin
	} else {
		ss.staticEval = ValueNone
	}

	var cont [6]*PieceToHistory
	for i := range cont {
		cont[i] = w.ss(ply - 1 - i).contHist
	}
	var mp MovePicker
	mp.InitQSearch(pos, w.hist, &cont, ttMove, ply)
	pinned := pos.Pinned(pos.SideToMove)

	bestMove := board.NoMove
	moveCount := 0
	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		if !pos.IsLegalFast(m, pinned) {
			continue
		}
		moveCount++

		if !inCheck && bestScore > -MateInMaxPly {
			// Delta pruning
			if !givesDirectCheck(pos, m) {
				if gain := futilityBase + captureValue(pos, m); gain <= alpha {
					bestScore = max(bestScore, gain)
					continue
				}
			}
			if !SEEGE(pos, m, 0) {
				continue
			}
		}

		ss.currentMove = m
		ss.contHist = w.hist.ContinuationFor(pos.MovedPieceAfter(m), m.To())
		w.makeMove(m, ply)
		w.pv.length[ply+1] = ply + 1
		score := -w.qsearch(pvNode, ply+1, -beta, -alpha)
		w.unmakeMove(m, ply)

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				bestMove = m
				if pvNode {
					w.pv.update(ply, m)
				}
				if score >= beta {
					break
				}
				alpha = score
			}
		}
	}

	if inCheck && moveCount == 0 {
		return -MateScore + ply
	}

	flag := TTUpperBound
	if bestScore >= beta {
		flag = TTLowerBound
	}
	w.tt.Store(pos.Hash, 0, AdjustScoreToTT(bestScore, ply), rawEval, flag, bestMove, pvNode)
	return bestScore
}

// updateAllStats rewards bestMove and penalizes the moves tried before it.
func (w *Worker) updateAllStats(ply, depth, moveCount int, bestMove, ttMove board.Move, inCheck bool,
	quiets, captures []board.Move) {
	pos := w.pos
	bonus := statBonus(depth, bestMove == ttMove)
	malus := statMalus(depth, moveCount)

	if !pos.IsCaptureOrPawnPromotion(bestMove) {
		w.updateQuietHistories(ply, inCheck, bestMove, bonus*quietBonusScale/1024)
		for _, m := range quiets {
			w.updateQuietHistories(ply, inCheck, m, -malus*quietMalusScale/1024)
		}
		w.hist.UpdateKillers(bestMove, ply)
		if prev := w.ss(ply - 1).currentMove; prev.IsOK() {
			w.hist.UpdateCounterMove(pos.PieceAt(prev.To()), prev.To(), bestMove)
		}
	} else {
		w.updateCaptureHistory(bestMove, bonus)
	}
	for _, m := range captures {
		w.updateCaptureHistory(m, -malus)
	}
}

func (w *Worker) updateCaptureHistory(m board.Move, bonus int) {
	pos := w.pos
	w.hist.Capture.Update(pos.MovedPieceAfter(m), m.To(), pos.PieceAt(m.To()).Type(), bonus)
}

func (w *Worker) updateQuietHistories(ply int, inCheck bool, m board.Move, bonus int) {
	pos := w.pos
	w.hist.Main.Update(pos.SideToMove, m, bonus)
	if ply < lowPlySize {
		w.hist.LowPly.Update(ply, m, bonus*lowPlyScale/1024)
	}
	w.updateContinuation(ply, inCheck, pos.MovedPieceAfter(m), m.To(), bonus*continuationScale/1024)
}

// updateContinuation updates the tables keyed by the moves 1..6 plies back,
// only the nearest two when in check.
func (w *Worker) updateContinuation(ply int, inCheck bool, pc board.Piece, to board.Square, bonus int) {
	for i := 1; i <= len(continuationWeights); i++ {
		if inCheck && i > 2 {
			break
		}
		e := w.ss(ply - i)
		if !e.currentMove.IsOK() {
			continue
		}
		e.contHist.Update(pc, to, continuationBonus(bonus, i))
	}
}

// ttBoundAllows reports whether a stored bound lets score stand in for a
// comparison against target.
func ttBoundAllows(flag TTFlag, score, target int) bool {
	if score == ValueNone {
		return false
	}
	switch flag {
	case TTExact:
		return true
	case TTLowerBound:
		return score >= target
	case TTUpperBound:
		return score < target
	}
	return false
}

func clampEval(v int) int {
	return max(-MateInMaxPly+1, min(v, MateInMaxPly-1))
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
