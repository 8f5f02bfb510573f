package board

// Color represents the side of a piece or player.
// Black (sente) moves first and moves toward rank "a".
type Color uint8

const (
	Black Color = iota
	White
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case Black:
		return "Black"
	case White:
		return "White"
	default:
		return "NoColor"
	}
}

// PieceType represents the kind of a shogi piece, promoted kinds included.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Lance
	Knight
	Silver
	Bishop
	Rook
	Gold
	King
	ProPawn
	ProLance
	ProKnight
	ProSilver
	Horse
	Dragon

	NumPieceTypes = 15

	// Promoted is the bit that turns a base type into its promoted type.
	Promoted PieceType = 8
)

// HandTypes lists the piece types that can be held in hand, in SFEN order.
var HandTypes = [7]PieceType{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

// CanPromote returns true if the type has a promoted form.
func (pt PieceType) CanPromote() bool {
	return pt >= Pawn && pt <= Rook
}

// IsPromoted returns true for promoted types.
func (pt PieceType) IsPromoted() bool {
	return pt > King
}

// Promote returns the promoted form of pt.
func (pt PieceType) Promote() PieceType {
	return pt | Promoted
}

// Base returns the unpromoted form of pt, which is what goes to the hand on capture.
func (pt PieceType) Base() PieceType {
	if pt.IsPromoted() {
		return pt &^ Promoted
	}
	return pt
}

// String returns the piece type name.
func (pt PieceType) String() string {
	if pt >= NumPieceTypes {
		return "None"
	}
	return pieceTypeNames[pt]
}

var pieceTypeNames = [NumPieceTypes]string{
	"None", "Pawn", "Lance", "Knight", "Silver", "Bishop", "Rook", "Gold", "King",
	"ProPawn", "ProLance", "ProKnight", "ProSilver", "Horse", "Dragon",
}

// Char returns the uppercase SFEN letter for the unpromoted type.
func (pt PieceType) Char() byte {
	return " PLNSBRGK"[pt.Base()]
}

// PieceValue is the material value of each type in centipawns.
var PieceValue = [NumPieceTypes]int{
	0, 90, 315, 405, 495, 855, 990, 540, 15000,
	540, 540, 540, 540, 945, 1395,
}

// Piece combines PieceType and Color: type | color<<4.
type Piece uint8

const (
	NoPiece   Piece = 0
	NumPieces       = 32
)

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt == NoPieceType || pt >= NumPieceTypes || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) | Piece(c)<<4
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	return PieceType(p & 15)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p == NoPiece {
		return NoColor
	}
	return Color(p >> 4)
}

// Value returns the material value of the piece in centipawns.
func (p Piece) Value() int {
	return PieceValue[p.Type()]
}

// String returns the SFEN text for the piece: uppercase for Black,
// lowercase for White, "+" prefix when promoted.
func (p Piece) String() string {
	if p == NoPiece {
		return " "
	}
	ch := p.Type().Char()
	if p.Color() == White {
		ch += 'a' - 'A'
	}
	if p.Type().IsPromoted() {
		return "+" + string(ch)
	}
	return string(ch)
}

// pieceTypeFromChar maps an uppercase SFEN letter to its base type.
func pieceTypeFromChar(c byte) PieceType {
	switch c {
	case 'P':
		return Pawn
	case 'L':
		return Lance
	case 'N':
		return Knight
	case 'S':
		return Silver
	case 'B':
		return Bishop
	case 'R':
		return Rook
	case 'G':
		return Gold
	case 'K':
		return King
	default:
		return NoPieceType
	}
}
