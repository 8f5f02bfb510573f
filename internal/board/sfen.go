package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartSFEN is the standard starting position.
const StartSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

// ErrMalformedSFEN is returned for position text that cannot be parsed.
var ErrMalformedSFEN = errors.New("malformed sfen")

// ParseSFEN parses an SFEN string into a Position.
// The move number field is optional and defaults to 1.
func ParseSFEN(sfen string) (*Position, error) {
	parts := strings.Fields(sfen)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 fields, got %d", ErrMalformedSFEN, len(parts))
	}

	p := &Position{KingSquare: [2]Square{NoSquare, NoSquare}}

	if err := p.parsePlacement(parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "b":
		p.SideToMove = Black
	case "w":
		p.SideToMove = White
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrMalformedSFEN, parts[1])
	}

	if err := p.parseHands(parts[2]); err != nil {
		return nil, err
	}
	if err := p.checkPieceSet(); err != nil {
		return nil, err
	}

	p.Ply = 1
	if len(parts) >= 4 {
		n, err := strconv.Atoi(parts[3])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: move number %q", ErrMalformedSFEN, parts[3])
		}
		p.Ply = n
	}

	p.Hash = p.ComputeHash()
	p.PawnKey = p.ComputePawnKey()
	p.UpdateCheckers()
	if p.IsAttacked(p.SideToMove, p.KingSquare[p.SideToMove.Other()]) {
		return nil, fmt.Errorf("%w: side not to move is in check", ErrMalformedSFEN)
	}

	p.states = make([]stateEntry, 1, MaxGamePly)
	p.states[0] = stateEntry{key: p.Hash}
	return p, nil
}

func (p *Position) parsePlacement(s string) error {
	ranks := strings.Split(s, "/")
	if len(ranks) != NumRanks {
		return fmt.Errorf("%w: need %d ranks, got %d", ErrMalformedSFEN, NumRanks, len(ranks))
	}

	for rank, row := range ranks {
		file := NumFiles - 1
		promoted := false
		for i := 0; i < len(row); i++ {
			ch := row[i]
			switch {
			case ch >= '1' && ch <= '9':
				if promoted {
					return fmt.Errorf("%w: '+' before digit in rank %d", ErrMalformedSFEN, rank+1)
				}
				file -= int(ch - '0')
			case ch == '+':
				promoted = true
			default:
				c := Black
				if ch >= 'a' && ch <= 'z' {
					c = White
					ch -= 'a' - 'A'
				}
				pt := pieceTypeFromChar(ch)
				if pt == NoPieceType {
					return fmt.Errorf("%w: piece %q", ErrMalformedSFEN, row[i])
				}
				if promoted {
					if !pt.CanPromote() {
						return fmt.Errorf("%w: %q cannot promote", ErrMalformedSFEN, row[i])
					}
					pt = pt.Promote()
					promoted = false
				}
				if file < 0 {
					return fmt.Errorf("%w: rank %d too long", ErrMalformedSFEN, rank+1)
				}
				sq := NewSquare(file, rank)
				if pt == King {
					if p.KingSquare[c] != NoSquare {
						return fmt.Errorf("%w: two %v kings", ErrMalformedSFEN, c)
					}
					p.KingSquare[c] = sq
				}
				p.putPiece(NewPiece(pt, c), sq)
				file--
			}
		}
		if file != -1 || promoted {
			return fmt.Errorf("%w: rank %d has wrong length", ErrMalformedSFEN, rank+1)
		}
	}

	if p.KingSquare[Black] == NoSquare || p.KingSquare[White] == NoSquare {
		return fmt.Errorf("%w: both kings are required", ErrMalformedSFEN)
	}
	return nil
}

func (p *Position) parseHands(s string) error {
	if s == "-" {
		return nil
	}
	for i := 0; i < len(s); {
		count := 1
		if s[i] >= '0' && s[i] <= '9' {
			j := i
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			digits := s[i:j]
			if digits[0] == '0' || len(digits) > 2 {
				return fmt.Errorf("%w: hand count %q", ErrMalformedSFEN, digits)
			}
			count, _ = strconv.Atoi(digits)
			i = j
			if i == len(s) {
				return fmt.Errorf("%w: dangling count in hand %q", ErrMalformedSFEN, s)
			}
		}
		ch := s[i]
		c := Black
		if ch >= 'a' && ch <= 'z' {
			c = White
			ch -= 'a' - 'A'
		}
		pt := pieceTypeFromChar(ch)
		if pt == NoPieceType || pt == King {
			return fmt.Errorf("%w: hand piece %q", ErrMalformedSFEN, s[i])
		}
		n := int(p.hands[c][pt]) + count
		if n > int(MaxHand[pt]) {
			return fmt.Errorf("%w: too many %v in hand", ErrMalformedSFEN, pt)
		}
		p.hands[c][pt] = uint8(n)
		i++
	}
	return nil
}

// checkPieceSet rejects positions holding more of a base type, counting the
// board (promoted forms included) and both hands, than a shogi set has.
func (p *Position) checkPieceSet() error {
	var total [8]int
	for sq := Square(0); sq < NumSquares; sq++ {
		if pc := p.board[sq]; pc != NoPiece && pc.Type() != King {
			total[pc.Type().Base()]++
		}
	}
	for _, pt := range HandTypes {
		total[pt] += int(p.hands[Black][pt]) + int(p.hands[White][pt])
		if total[pt] > int(MaxHand[pt]) {
			return fmt.Errorf("%w: %d %v exceed the piece set", ErrMalformedSFEN, total[pt], pt)
		}
	}
	return nil
}

// SFEN returns the SFEN string of the position.
func (p *Position) SFEN() string {
	var sb strings.Builder

	for rank := 0; rank < NumRanks; rank++ {
		empty := 0
		for file := NumFiles - 1; file >= 0; file-- {
			pc := p.board[NewSquare(file, rank)]
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank < NumRanks-1 {
			sb.WriteByte('/')
		}
	}

	if p.SideToMove == Black {
		sb.WriteString(" b ")
	} else {
		sb.WriteString(" w ")
	}

	hand := ""
	for c := Black; c <= White; c++ {
		for _, pt := range HandTypes {
			n := p.hands[c][pt]
			if n == 0 {
				continue
			}
			if n > 1 {
				hand += strconv.Itoa(int(n))
			}
			ch := pt.Char()
			if c == White {
				ch += 'a' - 'A'
			}
			hand += string(ch)
		}
	}
	if hand == "" {
		hand = "-"
	}
	sb.WriteString(hand)
	sb.WriteString(" " + strconv.Itoa(p.Ply))

	return sb.String()
}
