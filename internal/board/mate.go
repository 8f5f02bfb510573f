package board

// Mate1Ply returns a move that checkmates at once, or NoMove when none is
// found. Only checks landing next to the enemy king are tried, so a mate
// by a distant slider is missed. The side to move must not be in check.
func (p *Position) Mate1Ply() Move {
	if p.InCheck() {
		return NoMove
	}
	us := p.SideToMove
	ksq := p.KingSquare[us.Other()]
	near := KingAttacks(ksq)

	var ml MoveList
	p.Generate(&ml, GenAll)
	pinned := p.Pinned(us)
	for _, m := range ml.Slice() {
		to := m.To()
		if !near.IsSet(to) {
			continue
		}
		occ := p.occupied.Set(to)
		if !m.IsDrop() {
			occ = occ.Clear(m.From())
		}
		if !Attacks(p.MovedPieceAfter(m), to, occ).IsSet(ksq) {
			continue
		}
		if !p.IsLegalFast(m, pinned) {
			continue
		}
		undo := p.MakeMove(m)
		mated := !p.HasLegalMoves()
		p.UnmakeMove(m, undo)
		if mated {
			return m
		}
	}
	return NoMove
}
