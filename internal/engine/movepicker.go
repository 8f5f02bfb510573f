package engine

import (
	"math"

	"github.com/hailam/shogiplay/internal/board"
)

type pickStage uint8

const (
	stageMainTT pickStage = iota
	stageCaptureInit
	stageGoodCapture
	stageQuietInit
	stageGoodQuiet
	stageBadCapture
	stageBadQuiet

	stageEvasionTT
	stageEvasionInit
	stageEvasion

	stageQSearchTT
	stageQCaptureInit
	stageQCapture

	stageDone
)

// Move ordering scores
const (
	goodQuietThreshold = -14000
	quietSortFactor    = -3560
	checkCaptureBonus  = 1024
	checkQuietBonus    = 16384
	refutationBonus    = 4096
	evasionCaptureBase = 1 << 28
)

type extMove struct {
	move  board.Move
	value int
}

// MovePicker hands out the pseudo-legal moves of a position one at a time,
// best candidates first, generating each class of moves only when the
// previous class is exhausted. Every move is returned at most once; the
// caller still checks legality. The zero value is unusable; call InitMain
// or InitQSearch first.
type MovePicker struct {
	pos  *board.Position
	hist *HistoryTables
	cont *[6]*PieceToHistory

	ttMove  board.Move
	killers [2]board.Move
	counter board.Move
	depth   int
	ply     int

	stage      pickStage
	skipQuiets bool

	moves          [board.MaxMoves]extMove
	cur, endCur    int
	endBadCaptures int
	endCaptures    int
	endGenerated   int
}

// InitMain prepares the picker for a main-search node. cont holds the
// continuation tables of the previous 1..6 plies.
func (mp *MovePicker) InitMain(pos *board.Position, h *HistoryTables, cont *[6]*PieceToHistory,
	ttMove board.Move, depth, ply int, killers [2]board.Move, counter board.Move) {
	mp.init(pos, h, cont, ttMove, depth, ply)
	mp.killers = killers
	mp.counter = counter

	if pos.InCheck() {
		mp.stage = stageEvasionTT
	} else {
		mp.stage = stageMainTT
	}
	if mp.ttMove == board.NoMove {
		mp.stage++
	}
}

// InitQSearch prepares the picker for quiescence: captures and pawn
// promotions only, or every evasion when in check.
func (mp *MovePicker) InitQSearch(pos *board.Position, h *HistoryTables, cont *[6]*PieceToHistory,
	ttMove board.Move, ply int) {
	inCheck := pos.InCheck()
	mp.init(pos, h, cont, ttMove, 0, ply)
	if !inCheck && mp.ttMove != board.NoMove && !pos.IsCaptureOrPawnPromotion(mp.ttMove) {
		mp.ttMove = board.NoMove
	}
	mp.killers = [2]board.Move{}
	mp.counter = board.NoMove

	if inCheck {
		mp.stage = stageEvasionTT
	} else {
		mp.stage = stageQSearchTT
	}
	if mp.ttMove == board.NoMove {
		mp.stage++
	}
}

func (mp *MovePicker) init(pos *board.Position, h *HistoryTables, cont *[6]*PieceToHistory,
	ttMove board.Move, depth, ply int) {
	mp.pos = pos
	mp.hist = h
	mp.cont = cont
	mp.depth = depth
	mp.ply = ply
	mp.skipQuiets = false
	mp.cur, mp.endCur = 0, 0
	mp.endBadCaptures, mp.endCaptures, mp.endGenerated = 0, 0, 0
	mp.ttMove = board.NoMove
	if ttMove.IsOK() && pos.PseudoLegal(ttMove) {
		mp.ttMove = ttMove
	}
}

// SkipQuiets stops the picker from returning further quiet moves.
func (mp *MovePicker) SkipQuiets() {
	mp.skipQuiets = true
}

// Next returns the next move, or NoMove when none remain.
func (mp *MovePicker) Next() board.Move {
	for {
		switch mp.stage {
		case stageMainTT, stageEvasionTT, stageQSearchTT:
			mp.stage++
			return mp.ttMove

		case stageCaptureInit, stageQCaptureInit:
			mp.cur, mp.endBadCaptures = 0, 0
			mp.endCur = mp.generate(0, board.GenCaptures)
			mp.endCaptures = mp.endCur
			mp.endGenerated = mp.endCur
			mp.scoreCaptures()
			partialInsertionSort(mp.moves[:mp.endCur], math.MinInt)
			mp.stage++

		case stageGoodCapture:
			if m, ok := mp.selectGoodCapture(); ok {
				return m
			}
			mp.stage = stageQuietInit

		case stageQuietInit:
			if !mp.skipQuiets {
				mp.cur = mp.endCaptures
				mp.endCur = mp.generate(mp.endCaptures, board.GenQuiets)
				mp.endGenerated = mp.endCur
				mp.scoreQuiets()
				partialInsertionSort(mp.moves[mp.endCaptures:mp.endCur], quietSortFactor*mp.depth)
			}
			mp.stage = stageGoodQuiet

		case stageGoodQuiet:
			if !mp.skipQuiets {
				if m, ok := mp.selectWhile(func(v int) bool { return v > goodQuietThreshold }); ok {
					return m
				}
			}
			mp.cur, mp.endCur = 0, mp.endBadCaptures
			mp.stage = stageBadCapture

		case stageBadCapture:
			if m, ok := mp.selectWhile(nil); ok {
				return m
			}
			mp.cur, mp.endCur = mp.endCaptures, mp.endGenerated
			mp.stage = stageBadQuiet

		case stageBadQuiet:
			if !mp.skipQuiets {
				if m, ok := mp.selectWhile(func(v int) bool { return v <= goodQuietThreshold }); ok {
					return m
				}
			}
			mp.stage = stageDone

		case stageEvasionInit:
			mp.cur = 0
			mp.endCur = mp.generate(0, board.GenEvasions)
			mp.endGenerated = mp.endCur
			mp.scoreEvasions()
			partialInsertionSort(mp.moves[:mp.endCur], math.MinInt)
			mp.stage = stageEvasion

		case stageEvasion, stageQCapture:
			if m, ok := mp.selectWhile(nil); ok {
				return m
			}
			mp.stage = stageDone

		default:
			return board.NoMove
		}
	}
}

// generate appends moves of kind gt at offset start and returns the new end.
func (mp *MovePicker) generate(start int, gt board.GenType) int {
	var ml board.MoveList
	mp.pos.Generate(&ml, gt)
	end := start
	for _, m := range ml.Slice() {
		mp.moves[end] = extMove{move: m}
		end++
	}
	return end
}

// givesDirectCheck reports whether the moved piece attacks the enemy king
// from its destination. Discovered checks are not detected.
func givesDirectCheck(pos *board.Position, m board.Move) bool {
	pc := pos.MovedPieceAfter(m)
	occ := pos.Occupied().Set(m.To())
	if !m.IsDrop() {
		occ = occ.Clear(m.From())
	}
	return board.Attacks(pc, m.To(), occ).IsSet(pos.KingSquare[pos.SideToMove.Other()])
}

func (mp *MovePicker) scoreCaptures() {
	for i := mp.cur; i < mp.endCur; i++ {
		m := mp.moves[i].move
		to := m.To()
		pc := mp.pos.MovedPieceAfter(m)
		captured := mp.pos.PieceAt(to).Type()

		v := 7*captureValue(mp.pos, m) + mp.hist.Capture.Get(pc, to, captured)
		if givesDirectCheck(mp.pos, m) {
			v += checkCaptureBonus
		}
		mp.moves[i].value = v
	}
}

func (mp *MovePicker) scoreQuiets() {
	us := mp.pos.SideToMove
	for i := mp.cur; i < mp.endCur; i++ {
		m := mp.moves[i].move
		to := m.To()
		pc := mp.pos.MovedPieceAfter(m)

		v := 2 * mp.hist.Main.Get(us, m)
		for _, idx := range [...]int{0, 1, 2, 3, 5} {
			v += mp.cont[idx].Get(pc, to)
		}
		if givesDirectCheck(mp.pos, m) && SEEGE(mp.pos, m, -75) {
			v += checkQuietBonus
		}
		if mp.ply < lowPlySize {
			v += 8 * mp.hist.LowPly.Get(mp.ply, m) / (1 + mp.ply)
		}
		if m == mp.killers[0] || m == mp.killers[1] || m == mp.counter {
			v += refutationBonus
		}
		mp.moves[i].value = v
	}
}

func (mp *MovePicker) scoreEvasions() {
	us := mp.pos.SideToMove
	for i := mp.cur; i < mp.endCur; i++ {
		m := mp.moves[i].move
		if mp.pos.IsCapture(m) {
			mp.moves[i].value = mp.pos.PieceAt(m.To()).Value() + evasionCaptureBase
			continue
		}
		v := mp.hist.Main.Get(us, m) + mp.cont[0].Get(mp.pos.MovedPieceAfter(m), m.To())
		if mp.ply < lowPlySize {
			v += 2 * mp.hist.LowPly.Get(mp.ply, m) / (1 + mp.ply)
		}
		mp.moves[i].value = v
	}
}

// selectGoodCapture returns the next capture whose exchange is not clearly
// losing, moving losing ones to the bad-capture prefix of the buffer.
func (mp *MovePicker) selectGoodCapture() (board.Move, bool) {
	for mp.cur < mp.endCur {
		e := mp.moves[mp.cur]
		mp.cur++
		if e.move == mp.ttMove {
			continue
		}
		if SEEGE(mp.pos, e.move, -e.value/18) {
			return e.move, true
		}
		mp.moves[mp.endBadCaptures], mp.moves[mp.cur-1] = mp.moves[mp.cur-1], mp.moves[mp.endBadCaptures]
		mp.endBadCaptures++
	}
	return board.NoMove, false
}

// selectWhile returns the next move in [cur, endCur) other than the TT move
// whose score passes filter; a nil filter accepts every move.
func (mp *MovePicker) selectWhile(filter func(int) bool) (board.Move, bool) {
	for mp.cur < mp.endCur {
		e := mp.moves[mp.cur]
		mp.cur++
		if e.move == mp.ttMove {
			continue
		}
		if filter == nil || filter(e.value) {
			return e.move, true
		}
	}
	return board.NoMove, false
}

// partialInsertionSort sorts moves scoring at least limit to the front in
// descending order; the rest follow in no particular order.
func partialInsertionSort(moves []extMove, limit int) {
	sortedEnd := 0
	for p := 1; p < len(moves); p++ {
		if moves[p].value < limit {
			continue
		}
		tmp := moves[p]
		sortedEnd++
		moves[p] = moves[sortedEnd]
		q := sortedEnd
		for ; q > 0 && moves[q-1].value < tmp.value; q-- {
			moves[q] = moves[q-1]
		}
		moves[q] = tmp
	}
}
