package board

// GenType selects which subset of pseudo-legal moves Generate produces.
type GenType uint8

const (
	GenAll      GenType = iota // captures, quiets and drops; side to move not in check
	GenCaptures                // board moves that take a piece, plus pawn promotions
	GenQuiets                  // remaining board moves and drops
	GenEvasions                // replies to check
	GenDrops                   // drops only
)

// Generate appends pseudo-legal moves of kind gt to ml. Pseudo-legal moves
// obey piece movement and drop rules but may leave the king in check or be
// a mating pawn drop; filter them with IsLegal.
func (p *Position) Generate(ml *MoveList, gt GenType) {
	us := p.SideToMove
	them := us.Other()
	empty := p.occupied.Not()

	switch gt {
	case GenAll:
		p.generateBoardMoves(ml, p.byColor[them].Or(empty), true)
		p.generateDrops(ml, empty)
	case GenCaptures:
		p.generateBoardMoves(ml, p.byColor[them], true)
		p.generatePawnPromotions(ml, empty)
	case GenQuiets:
		p.generateQuietBoardMoves(ml, empty)
		p.generateDrops(ml, empty)
	case GenDrops:
		p.generateDrops(ml, empty)
	case GenEvasions:
		p.generateEvasions(ml)
	}
}

// GenerateLegal clears ml and fills it with every legal move.
func (p *Position) GenerateLegal(ml *MoveList) {
	ml.Clear()
	var pseudo MoveList
	if p.InCheck() {
		p.Generate(&pseudo, GenEvasions)
	} else {
		p.Generate(&pseudo, GenAll)
	}
	pinned := p.Pinned(p.SideToMove)
	for _, m := range pseudo.Slice() {
		if p.IsLegalFast(m, pinned) {
			ml.Add(m)
		}
	}
}

// GenerateLegalMoves returns a new list with every legal move.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.GenerateLegal(ml)
	return ml
}

// mustPromote reports whether a piece of type pt arriving on to would have no further moves.
func mustPromote(pt PieceType, c Color, to Square) bool {
	r := to.RelativeRank(c)
	switch pt {
	case Pawn, Lance:
		return r == 0
	case Knight:
		return r <= 1
	}
	return false
}

// addBoardMoves adds the promoting and non-promoting forms of from-to.
func addBoardMoves(ml *MoveList, pt PieceType, c Color, from, to Square) {
	if pt.CanPromote() && (from.InPromotionZone(c) || to.InPromotionZone(c)) {
		ml.Add(NewPromotion(from, to))
		if !mustPromote(pt, c, to) {
			ml.Add(NewMove(from, to))
		}
		return
	}
	ml.Add(NewMove(from, to))
}

// generateBoardMoves adds moves of pieces already on the board landing on targets.
func (p *Position) generateBoardMoves(ml *MoveList, targets Bitboard, withKing bool) {
	us := p.SideToMove
	own := p.byColor[us]
	if !withKing {
		own = own.Clear(p.KingSquare[us])
	}
	for pieces := own; pieces.Any(); {
		from := pieces.PopLSB()
		pc := p.board[from]
		attacks := Attacks(pc, from, p.occupied).And(targets)
		for attacks.Any() {
			to := attacks.PopLSB()
			addBoardMoves(ml, pc.Type(), us, from, to)
		}
	}
}

// generatePawnPromotions adds promoting pawn pushes onto empty targets.
func (p *Position) generatePawnPromotions(ml *MoveList, targets Bitboard) {
	us := p.SideToMove
	zone := PromotionZone(us)
	for pawns := p.Pieces(us, Pawn); pawns.Any(); {
		from := pawns.PopLSB()
		if PawnAttacks(us, from).And(targets).And(zone).Any() {
			ml.Add(NewPromotion(from, PawnAttacks(us, from).LSB()))
		}
	}
}

// generateQuietBoardMoves is generateBoardMoves without the pawn promotions
// that GenCaptures already produces.
func (p *Position) generateQuietBoardMoves(ml *MoveList, targets Bitboard) {
	us := p.SideToMove
	for pieces := p.byColor[us]; pieces.Any(); {
		from := pieces.PopLSB()
		pc := p.board[from]
		attacks := Attacks(pc, from, p.occupied).And(targets)
		for attacks.Any() {
			to := attacks.PopLSB()
			if pc.Type() == Pawn {
				if !mustPromote(Pawn, us, to) {
					ml.Add(NewMove(from, to))
				}
				continue
			}
			addBoardMoves(ml, pc.Type(), us, from, to)
		}
	}
}

// generateDrops adds drops of every held piece type onto targets.
func (p *Position) generateDrops(ml *MoveList, targets Bitboard) {
	us := p.SideToMove
	hand := &p.hands[us]
	if hand.IsEmpty() {
		return
	}

	far := RankMask[0]
	next := RankMask[1]
	if us == White {
		far = RankMask[8]
		next = RankMask[7]
	}

	for pt := Pawn; pt <= Gold; pt++ {
		if !hand.Has(pt) {
			continue
		}
		tgt := targets
		switch pt {
		case Pawn:
			tgt = tgt.AndNot(far)
			pawns := p.Pieces(us, Pawn)
			for f := 0; f < NumFiles; f++ {
				if pawns.Intersects(FileMask[f]) {
					tgt = tgt.AndNot(FileMask[f])
				}
			}
		case Lance:
			tgt = tgt.AndNot(far)
		case Knight:
			tgt = tgt.AndNot(far).AndNot(next)
		}
		for tgt.Any() {
			ml.Add(NewDrop(pt, tgt.PopLSB()))
		}
	}
}

func (p *Position) generateEvasions(ml *MoveList) {
	us := p.SideToMove
	ksq := p.KingSquare[us]

	kingTargets := KingAttacks(ksq).AndNot(p.byColor[us])
	for kingTargets.Any() {
		ml.Add(NewMove(ksq, kingTargets.PopLSB()))
	}

	if p.Checkers.MoreThanOne() {
		return
	}
	checker := p.Checkers.LSB()
	block := Between(ksq, checker)
	p.generateBoardMoves(ml, block.Set(checker), false)
	p.generateDrops(ml, block)
}

// IsLegal returns true if the pseudo-legal move m does not leave the king
// in check and is not a mating pawn drop.
func (p *Position) IsLegal(m Move) bool {
	return p.IsLegalFast(m, p.Pinned(p.SideToMove))
}

// IsLegalFast is IsLegal with the pinned set precomputed by the caller.
func (p *Position) IsLegalFast(m Move, pinned Bitboard) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	to := m.To()

	if m.IsDrop() {
		if p.Checkers.Any() {
			if p.Checkers.MoreThanOne() || !Between(ksq, p.Checkers.LSB()).IsSet(to) {
				return false
			}
		}
		if m.DropType() == Pawn && PawnAttacks(us, to).IsSet(p.KingSquare[them]) {
			return !p.isPawnDropMate(m)
		}
		return true
	}

	from := m.From()
	if from == ksq {
		occ := p.occupied.Clear(from)
		return !p.AttackersTo(them, to, occ).Any()
	}

	if p.Checkers.Any() {
		if p.Checkers.MoreThanOne() {
			return false
		}
		checker := p.Checkers.LSB()
		if to != checker && !Between(ksq, checker).IsSet(to) {
			return false
		}
	}

	return !pinned.IsSet(from) || Aligned(ksq, from, to)
}

// isPawnDropMate reports whether dropping a pawn with m gives checkmate,
// which the rules forbid.
func (p *Position) isPawnDropMate(m Move) bool {
	undo := p.MakeMove(m)
	mate := !p.HasLegalMoves()
	p.UnmakeMove(m, undo)
	return mate
}

// PseudoLegal returns true if m, typically taken from the transposition
// table or a killer slot, is a pseudo-legal move in this position.
func (p *Position) PseudoLegal(m Move) bool {
	if !m.IsOK() {
		return false
	}
	us := p.SideToMove
	to := m.To()
	if !to.IsValid() {
		return false
	}
	ksq := p.KingSquare[us]

	if m.IsDrop() {
		pt := m.DropType()
		if pt < Pawn || pt > Gold || m.IsPromotion() || !p.hands[us].Has(pt) || !p.IsEmpty(to) {
			return false
		}
		if mustPromote(pt, us, to) {
			return false
		}
		if pt == Pawn && p.Pieces(us, Pawn).Intersects(FileMask[to.File()]) {
			return false
		}
		if p.Checkers.Any() {
			return !p.Checkers.MoreThanOne() && Between(ksq, p.Checkers.LSB()).IsSet(to)
		}
		return true
	}

	from := m.From()
	if !from.IsValid() {
		return false
	}
	pc := p.board[from]
	if pc == NoPiece || pc.Color() != us || p.byColor[us].IsSet(to) {
		return false
	}
	if !Attacks(pc, from, p.occupied).IsSet(to) {
		return false
	}

	pt := pc.Type()
	if m.IsPromotion() {
		if !pt.CanPromote() || !(from.InPromotionZone(us) || to.InPromotionZone(us)) {
			return false
		}
	} else if mustPromote(pt, us, to) {
		return false
	}

	if p.Checkers.Any() && pt != King {
		if p.Checkers.MoreThanOne() {
			return false
		}
		checker := p.Checkers.LSB()
		if to != checker && !Between(ksq, checker).IsSet(to) {
			return false
		}
	}
	return true
}

// HasLegalMoves returns true if the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	if p.InCheck() {
		p.Generate(&ml, GenEvasions)
	} else {
		p.Generate(&ml, GenAll)
	}
	pinned := p.Pinned(p.SideToMove)
	for _, m := range ml.Slice() {
		if p.IsLegalFast(m, pinned) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the side to move is in check with no legal reply.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth == 0 {
		return 1
	}

	var ml MoveList
	p.GenerateLegal(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for _, m := range ml.Slice() {
		undo := p.MakeMove(m)
		nodes += p.Perft(depth - 1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

// PerftDivide returns the perft count below each root move.
func (p *Position) PerftDivide(depth int) map[Move]uint64 {
	result := make(map[Move]uint64)
	if depth < 1 {
		return result
	}
	var ml MoveList
	p.GenerateLegal(&ml)
	for _, m := range ml.Slice() {
		undo := p.MakeMove(m)
		result[m] = p.Perft(depth - 1)
		p.UnmakeMove(m, undo)
	}
	return result
}
