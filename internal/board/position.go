package board

import "strings"

// stateEntry is the per-ply record kept for repetition detection.
type stateEntry struct {
	key           uint64
	pliesFromNull int
	checkRun      [2]int // plies of consecutive checks given by each color
}

// Position represents a complete shogi position.
type Position struct {
	board    [NumSquares]Piece
	byType   [NumPieceTypes]Bitboard // both colors
	byColor  [2]Bitboard
	occupied Bitboard
	hands    [2]Hand

	// Game state
	SideToMove Color
	Ply        int // SFEN move number, incremented per applied move

	// Zobrist hash over board, hands and side to move
	Hash uint64

	// Hash over unpromoted pawns only, used by correction history
	PawnKey uint64

	// King positions (cached for check detection)
	KingSquare [2]Square

	// Checkers bitboard (pieces giving check to the side to move)
	Checkers Bitboard

	states []stateEntry
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseSFEN(StartSFEN)
	return pos
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	newPos.states = make([]stateEntry, len(p.states), len(p.states)+MaxGamePly)
	copy(newPos.states, p.states)
	return &newPos
}

// MaxGamePly is the extra state capacity reserved by Copy for a search line.
const MaxGamePly = 256

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	return p.board[sq]
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.board[sq] == NoPiece
}

// Occupied returns all occupied squares.
func (p *Position) Occupied() Bitboard {
	return p.occupied
}

// ColorBB returns the squares occupied by color c.
func (p *Position) ColorBB(c Color) Bitboard {
	return p.byColor[c]
}

// Pieces returns the squares holding pieces of color c and type pt.
func (p *Position) Pieces(c Color, pt PieceType) Bitboard {
	return p.byColor[c].And(p.byType[pt])
}

// golds returns gold movers (gold and promoted minors) of color c.
func (p *Position) golds(c Color) Bitboard {
	bb := p.byType[Gold].Or(p.byType[ProPawn]).Or(p.byType[ProLance]).
		Or(p.byType[ProKnight]).Or(p.byType[ProSilver])
	return bb.And(p.byColor[c])
}

// Hand returns the hand of color c.
func (p *Position) Hand(c Color) Hand {
	return p.hands[c]
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers.Any()
}

// IsCapture returns true if the move takes a piece.
func (p *Position) IsCapture(m Move) bool {
	return !m.IsDrop() && p.board[m.To()] != NoPiece
}

// IsCaptureOrPawnPromotion returns true for the tactical moves quiescence searches.
func (p *Position) IsCaptureOrPawnPromotion(m Move) bool {
	if p.IsCapture(m) {
		return true
	}
	return m.IsPromotion() && p.board[m.From()].Type() == Pawn
}

// MovedPiece returns the piece that moves (before any promotion).
func (p *Position) MovedPiece(m Move) Piece {
	if m.IsDrop() {
		return NewPiece(m.DropType(), p.SideToMove)
	}
	return p.board[m.From()]
}

// MovedPieceAfter returns the piece that stands on the destination after the move.
func (p *Position) MovedPieceAfter(m Move) Piece {
	pc := p.MovedPiece(m)
	if m.IsPromotion() {
		return NewPiece(pc.Type().Promote(), pc.Color())
	}
	return pc
}

// PieceCountOnBoard returns the number of pieces on the board, kings included.
func (p *Position) PieceCountOnBoard() int {
	return p.occupied.PopCount()
}

func (p *Position) putPiece(pc Piece, sq Square) {
	p.board[sq] = pc
	bb := SquareBB(sq)
	p.byType[pc.Type()] = p.byType[pc.Type()].Or(bb)
	p.byColor[pc.Color()] = p.byColor[pc.Color()].Or(bb)
	p.occupied = p.occupied.Or(bb)
}

func (p *Position) removePiece(pc Piece, sq Square) {
	p.board[sq] = NoPiece
	bb := SquareBB(sq)
	p.byType[pc.Type()] = p.byType[pc.Type()].AndNot(bb)
	p.byColor[pc.Color()] = p.byColor[pc.Color()].AndNot(bb)
	p.occupied = p.occupied.AndNot(bb)
}

// AttackersTo returns the pieces of color c that attack sq given occupancy occ.
func (p *Position) AttackersTo(c Color, sq Square, occ Bitboard) Bitboard {
	them := c.Other()
	own := p.byColor[c]

	att := PawnAttacks(them, sq).And(p.byType[Pawn])
	att = att.Or(KnightAttacks(them, sq).And(p.byType[Knight]))
	att = att.Or(SilverAttacks(them, sq).And(p.byType[Silver]))
	att = att.Or(GoldAttacks(them, sq).And(p.golds(c)))
	att = att.Or(KingAttacks(sq).And(p.byType[King].Or(p.byType[Horse]).Or(p.byType[Dragon])))
	att = att.Or(LanceAttacks(them, sq, occ).And(p.byType[Lance]))
	att = att.Or(BishopAttacks(sq, occ).And(p.byType[Bishop].Or(p.byType[Horse])))
	att = att.Or(RookAttacks(sq, occ).And(p.byType[Rook].Or(p.byType[Dragon])))
	return att.And(own)
}

// IsAttacked returns true if color c attacks sq.
func (p *Position) IsAttacked(c Color, sq Square) bool {
	return p.AttackersTo(c, sq, p.occupied).Any()
}

// UpdateCheckers recomputes the checkers bitboard for the side to move.
func (p *Position) UpdateCheckers() {
	us := p.SideToMove
	p.Checkers = p.AttackersTo(us.Other(), p.KingSquare[us], p.occupied)
}

// Pinned returns the pieces of color c pinned to c's king.
func (p *Position) Pinned(c Color) Bitboard {
	ksq := p.KingSquare[c]
	them := c.Other()

	snipers := LanceAttacks(c, ksq, Empty).And(p.Pieces(them, Lance))
	snipers = snipers.Or(BishopAttacks(ksq, Empty).And(p.byType[Bishop].Or(p.byType[Horse])).And(p.byColor[them]))
	snipers = snipers.Or(RookAttacks(ksq, Empty).And(p.byType[Rook].Or(p.byType[Dragon])).And(p.byColor[them]))

	var pinned Bitboard
	for snipers.Any() {
		s := snipers.PopLSB()
		b := Between(ksq, s).And(p.occupied)
		if b.Any() && !b.MoreThanOne() && b.Intersects(p.byColor[c]) {
			pinned = pinned.Or(b)
		}
	}
	return pinned
}

// MakeMove applies a legal move and returns what is needed to undo it.
func (p *Position) MakeMove(m Move) UndoInfo {
	us := p.SideToMove
	them := us.Other()
	to := m.To()

	undo := UndoInfo{
		Hash:     p.Hash,
		PawnKey:  p.PawnKey,
		Checkers: p.Checkers,
	}
	d := &undo.Dirty

	if m.IsDrop() {
		pt := m.DropType()
		pc := NewPiece(pt, us)
		n := int(p.hands[us][pt])
		d.remove(DirtyItem{Piece: pc, Square: NoSquare, HandIndex: uint8(n)})
		p.Hash ^= zobristHand[us][pt][n] ^ zobristHand[us][pt][n-1]
		p.hands[us][pt]--

		p.putPiece(pc, to)
		p.Hash ^= zobristPiece[pc][to]
		if pt == Pawn {
			p.PawnKey ^= zobristPiece[pc][to]
		}
		d.add(DirtyItem{Piece: pc, Square: to})
	} else {
		from := m.From()
		pc := p.board[from]
		captured := p.board[to]

		if captured != NoPiece {
			p.removePiece(captured, to)
			p.Hash ^= zobristPiece[captured][to]
			if captured.Type() == Pawn {
				p.PawnKey ^= zobristPiece[captured][to]
			}
			d.remove(DirtyItem{Piece: captured, Square: to})

			// ParseSFEN caps each base type at its set size, so n <= MaxHand.
			base := captured.Type().Base()
			n := int(p.hands[us][base]) + 1
			p.hands[us][base]++
			p.Hash ^= zobristHand[us][base][n-1] ^ zobristHand[us][base][n]
			d.add(DirtyItem{Piece: NewPiece(base, us), Square: NoSquare, HandIndex: uint8(n)})
		}

		p.removePiece(pc, from)
		p.Hash ^= zobristPiece[pc][from]
		if pc.Type() == Pawn {
			p.PawnKey ^= zobristPiece[pc][from]
		}
		d.remove(DirtyItem{Piece: pc, Square: from})

		moved := pc
		if m.IsPromotion() {
			moved = NewPiece(pc.Type().Promote(), us)
		}
		p.putPiece(moved, to)
		p.Hash ^= zobristPiece[moved][to]
		if moved.Type() == Pawn {
			p.PawnKey ^= zobristPiece[moved][to]
		}
		d.add(DirtyItem{Piece: moved, Square: to})

		if pc.Type() == King {
			p.KingSquare[us] = to
			d.KingMoved[us] = true
		}
		undo.Captured = captured
	}

	p.Hash ^= zobristSideToMove
	p.SideToMove = them
	p.Ply++
	p.UpdateCheckers()

	prev := p.states[len(p.states)-1]
	st := stateEntry{key: p.Hash, pliesFromNull: prev.pliesFromNull + 1, checkRun: prev.checkRun}
	if p.Checkers.Any() {
		st.checkRun[us] = prev.checkRun[us] + 2
	} else {
		st.checkRun[us] = 0
	}
	p.states = append(p.states, st)

	return undo
}

// UnmakeMove undoes a move using the stored undo information.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	us := p.SideToMove.Other()
	to := m.To()

	if m.IsDrop() {
		pt := m.DropType()
		p.removePiece(NewPiece(pt, us), to)
		p.hands[us][pt]++
	} else {
		from := m.From()
		moved := p.board[to]
		p.removePiece(moved, to)

		pc := moved
		if m.IsPromotion() {
			pc = NewPiece(moved.Type().Base(), us)
		}
		p.putPiece(pc, from)
		if pc.Type() == King {
			p.KingSquare[us] = from
		}

		if undo.Captured != NoPiece {
			p.putPiece(undo.Captured, to)
			p.hands[us][undo.Captured.Type().Base()]--
		}
	}

	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.Checkers = undo.Checkers
	p.SideToMove = us
	p.Ply--
	p.states = p.states[:len(p.states)-1]
}

// NullMoveUndo stores information to undo a null move.
type NullMoveUndo struct {
	Hash     uint64
	Checkers Bitboard
}

// MakeNullMove passes the turn. Must not be called while in check.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{Hash: p.Hash, Checkers: p.Checkers}
	p.Hash ^= zobristSideToMove
	p.SideToMove = p.SideToMove.Other()
	p.Ply++
	p.Checkers = Empty
	p.states = append(p.states, stateEntry{key: p.Hash})
	return undo
}

// UnmakeNullMove undoes a null move.
func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
	p.SideToMove = p.SideToMove.Other()
	p.Ply--
	p.states = p.states[:len(p.states)-1]
}

// RepetitionState classifies a repeated position.
type RepetitionState uint8

const (
	RepNone RepetitionState = iota
	RepDraw                 // same position, no perpetual check
	RepWin                  // side to move was perpetually checked
	RepLose                 // side to move gave perpetual check
)

// Repetition reports whether the current position occurred before with the
// same side to move and hands, and how the rules score it.
func (p *Position) Repetition() RepetitionState {
	n := len(p.states) - 1
	cur := p.states[n]
	us := p.SideToMove
	for i := 4; i <= cur.pliesFromNull && i <= n; i += 2 {
		if p.states[n-i].key != cur.key {
			continue
		}
		switch {
		case cur.checkRun[us.Other()] >= i:
			return RepWin
		case cur.checkRun[us] >= i:
			return RepLose
		default:
			return RepDraw
		}
	}
	return RepNone
}

// ComputeHash recomputes the Zobrist hash from scratch.
func (p *Position) ComputeHash() uint64 {
	var h uint64
	for sq := Square(0); sq < NoSquare; sq++ {
		if pc := p.board[sq]; pc != NoPiece {
			h ^= zobristPiece[pc][sq]
		}
	}
	for c := Black; c <= White; c++ {
		for pt := Pawn; pt <= Gold; pt++ {
			h ^= zobristHand[c][pt][p.hands[c][pt]]
		}
	}
	if p.SideToMove == White {
		h ^= zobristSideToMove
	}
	return h
}

// ComputePawnKey recomputes the pawn hash from scratch.
func (p *Position) ComputePawnKey() uint64 {
	var h uint64
	for c := Black; c <= White; c++ {
		pawns := p.Pieces(c, Pawn)
		for pawns.Any() {
			sq := pawns.PopLSB()
			h ^= zobristPiece[NewPiece(Pawn, c)][sq]
		}
	}
	return h
}

// DeclarationWin reports whether the side to move may declare a win under
// the CSA 27-point entering-king rule.
func (p *Position) DeclarationWin() bool {
	us := p.SideToMove
	if p.InCheck() {
		return false
	}
	zone := PromotionZone(us)
	if !zone.IsSet(p.KingSquare[us]) {
		return false
	}

	inZone := zone.And(p.byColor[us]).Clear(p.KingSquare[us])
	if inZone.PopCount() < 10 {
		return false
	}

	big := p.byType[Bishop].Or(p.byType[Rook]).Or(p.byType[Horse]).Or(p.byType[Dragon])
	bigInZone := inZone.And(big).PopCount()
	points := inZone.PopCount() + 4*bigInZone

	h := &p.hands[us]
	points += h.Total() + 4*(h.Count(Bishop)+h.Count(Rook))

	if us == Black {
		return points >= 28
	}
	return points >= 27
}

// String returns a human-readable board, Black at the bottom.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("  9  8  7  6  5  4  3  2  1\n")
	for rank := 0; rank < NumRanks; rank++ {
		sb.WriteString("|")
		for file := NumFiles - 1; file >= 0; file-- {
			pc := p.board[NewSquare(file, rank)]
			s := pc.String()
			if pc == NoPiece {
				s = "."
			}
			for len(s) < 2 {
				s = " " + s
			}
			sb.WriteString(s + " ")
		}
		sb.WriteString("| " + string(rune('a'+rank)) + "\n")
	}
	sb.WriteString("\nSFEN: " + p.SFEN() + "\n")
	return sb.String()
}
