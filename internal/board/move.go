package board

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedMove is returned for move text that cannot be parsed.
	ErrMalformedMove = errors.New("malformed move")
	// ErrIllegalMove is returned for a well-formed move that is not legal in the position.
	ErrIllegalMove = errors.New("illegal move")
)

// Move encodes a shogi move in 16 bits:
// bits 0-6:  destination square (0-80)
// bits 7-13: origin square, or 81+type-1 for a drop
// bit 14:    promotion
// bit 15:    drop
type Move uint16

const (
	movePromote Move = 1 << 14
	moveDrop    Move = 1 << 15
)

const (
	// NoMove represents the absence of a move.
	NoMove Move = 0
	// NullMove is the pass used by null-move pruning. Its origin equals its
	// destination, which no real move has.
	NullMove Move = 1<<7 | 1
)

// NewMove creates a board move.
func NewMove(from, to Square) Move {
	return Move(to) | Move(from)<<7
}

// NewPromotion creates a board move that promotes the moving piece.
func NewPromotion(from, to Square) Move {
	return NewMove(from, to) | movePromote
}

// NewDrop creates a drop of a piece of type pt from hand.
func NewDrop(pt PieceType, to Square) Move {
	return Move(to) | Move(NumSquares+int(pt)-1)<<7 | moveDrop
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m & 0x7F)
}

// From returns the origin square. Only meaningful for board moves.
func (m Move) From() Square {
	return Square((m >> 7) & 0x7F)
}

// FromIndex returns the raw origin field (0-87), used to index history tables.
func (m Move) FromIndex() int {
	return int((m >> 7) & 0x7F)
}

// IsDrop returns true for drops.
func (m Move) IsDrop() bool {
	return m&moveDrop != 0
}

// DropType returns the dropped piece type. Only meaningful for drops.
func (m Move) DropType() PieceType {
	return PieceType(m.FromIndex() - NumSquares + 1)
}

// IsPromotion returns true if the move promotes.
func (m Move) IsPromotion() bool {
	return m&movePromote != 0
}

// IsOK returns true for a move that is neither NoMove nor NullMove.
func (m Move) IsOK() bool {
	return m != NoMove && m != NullMove
}

// HistoryIndex returns from*81+to for butterfly-style tables.
func (m Move) HistoryIndex() int {
	return m.FromIndex()*NumSquares + int(m.To())
}

// HistorySize bounds HistoryIndex.
const HistorySize = (NumSquares + 7) * NumSquares

// String returns the USI text of the move (e.g. "7g7f", "8h2b+", "P*5e").
func (m Move) String() string {
	switch m {
	case NoMove:
		return "none"
	case NullMove:
		return "null"
	}
	if m.IsDrop() {
		return string(m.DropType().Char()) + "*" + m.To().String()
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += "+"
	}
	return s
}

// ParseMove parses USI move text and resolves it against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	m, err := parseMoveText(s)
	if err != nil {
		return NoMove, err
	}
	ml := NewMoveList()
	pos.GenerateLegal(ml)
	if !ml.Contains(m) {
		return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, s)
	}
	return m, nil
}

func parseMoveText(s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrMalformedMove, s)
	}

	if s[1] == '*' {
		if len(s) != 4 {
			return NoMove, fmt.Errorf("%w: %q", ErrMalformedMove, s)
		}
		pt := pieceTypeFromChar(s[0])
		if pt == NoPieceType || pt == King {
			return NoMove, fmt.Errorf("%w: drop piece %q", ErrMalformedMove, s[0])
		}
		to, err := ParseSquare(s[2:4])
		if err != nil {
			return NoMove, err
		}
		return NewDrop(pt, to), nil
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}
	if len(s) == 5 {
		if s[4] != '+' {
			return NoMove, fmt.Errorf("%w: %q", ErrMalformedMove, s)
		}
		return NewPromotion(from, to), nil
	}
	return NewMove(from, to), nil
}

// MaxMoves bounds a MoveList. The most moves known for a legal shogi position
// is 593, and pseudo-legal generation of that position also yields 593, so Add
// does not check capacity.
const MaxMoves = 600

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear empties the list for reuse.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// DirtyItem is one feature-relevant piece placement: a piece on a board
// square, or (Square == NoSquare) the HandIndex-th piece of its type in hand.
type DirtyItem struct {
	Piece     Piece
	Square    Square
	HandIndex uint8
}

// DirtyPiece lists the placements a move removed and added, for incremental
// evaluator updates.
type DirtyPiece struct {
	Removed    [2]DirtyItem
	Added      [2]DirtyItem
	NumRemoved int
	NumAdded   int
	KingMoved  [2]bool
}

func (d *DirtyPiece) remove(it DirtyItem) {
	d.Removed[d.NumRemoved] = it
	d.NumRemoved++
}

func (d *DirtyPiece) add(it DirtyItem) {
	d.Added[d.NumAdded] = it
	d.NumAdded++
}

// UndoInfo stores what MakeMove overwrote so UnmakeMove can restore it exactly.
type UndoInfo struct {
	Captured Piece
	Hash     uint64
	PawnKey  uint64
	Checkers Bitboard
	Dirty    DirtyPiece
}
