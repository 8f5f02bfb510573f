// Package book reads opening books in the YaneuraOu text format:
//
//	#YANEURAOU-DB2016 1.00
//	sfen lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1
//	7g7f 3c3d 0 32 2
//	2g2f none 0 32 1
//
// Each move line is "<move> <ponder> <value> <depth> <count>".
package book

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"lukechampine.com/frand"

	"github.com/hailam/shogiplay/internal/board"
)

// ErrMalformedBook is returned for book text that cannot be parsed.
var ErrMalformedBook = errors.New("malformed book")

// BookEntry represents a single book move.
type BookEntry struct {
	Move   board.Move
	Ponder board.Move // NoMove when the book names none
	Value  int
	Depth  int
	Count  uint64
}

// Book represents an opening book keyed by position hash.
type Book struct {
	entries map[uint64][]BookEntry
	rng     *frand.RNG // nil uses the global generator
}

// New creates an empty book.
func New() *Book {
	return &Book{
		entries: make(map[uint64][]BookEntry),
	}
}

// SetSeed makes Probe choices reproducible.
func (b *Book) SetSeed(seed [32]byte) {
	b.rng = frand.NewCustom(seed[:], 1024, 12)
}

// LoadFile loads a book from a file.
func LoadFile(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Load(file)
}

// Load reads a book. Moves that are not legal in their position are
// dropped; anything unparseable is ErrMalformedBook.
func Load(r io.Reader) (*Book, error) {
	book := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pos *board.Position
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if rest, ok := strings.CutPrefix(line, "sfen "); ok {
			p, err := board.ParseSFEN(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedBook, lineNo, err)
			}
			pos = p
			continue
		}

		if pos == nil {
			return nil, fmt.Errorf("%w: line %d: move before any sfen", ErrMalformedBook, lineNo)
		}
		entry, legal, err := parseEntry(pos, line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedBook, lineNo, err)
		}
		if legal {
			book.entries[pos.Hash] = append(book.entries[pos.Hash], entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for k := range book.entries {
		sortEntries(book.entries[k])
	}
	return book, nil
}

func parseEntry(pos *board.Position, line string) (BookEntry, bool, error) {
	f := strings.Fields(line)
	if len(f) < 1 {
		return BookEntry{}, false, errors.New("empty move line")
	}
	var e BookEntry

	m, err := board.ParseMove(f[0], pos)
	if errors.Is(err, board.ErrIllegalMove) {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	e.Move = m

	if len(f) > 1 && f[1] != "none" {
		after := pos.Copy()
		after.MakeMove(m)
		if p, err := board.ParseMove(f[1], after); err == nil {
			e.Ponder = p
		}
	}

	nums := []*int{&e.Value, &e.Depth}
	for i, dst := range nums {
		if len(f) > i+2 {
			if *dst, err = strconv.Atoi(f[i+2]); err != nil {
				return e, false, err
			}
		}
	}
	e.Count = 1
	if len(f) > 4 {
		if e.Count, err = strconv.ParseUint(f[4], 10, 64); err != nil {
			return e, false, err
		}
	}
	return e, true, nil
}

func sortEntries(entries []BookEntry) {
	slices.SortStableFunc(entries, func(a, b BookEntry) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		}
		return b.Value - a.Value
	})
}

// Probe looks up a position in the book and returns a move chosen at random
// with probability proportional to its count.
func (b *Book) Probe(pos *board.Position) (BookEntry, bool) {
	if b == nil {
		return BookEntry{}, false
	}

	var candidates []BookEntry
	var total uint64
	for _, e := range b.entries[pos.Hash] {
		// Guards against hash collisions.
		if pos.IsLegal(e.Move) {
			candidates = append(candidates, e)
			total += e.Count
		}
	}
	if len(candidates) == 0 {
		return BookEntry{}, false
	}
	if total == 0 {
		return candidates[0], true
	}

	var r uint64
	if b.rng != nil {
		r = b.rng.Uint64n(total)
	} else {
		r = frand.Uint64n(total)
	}
	for _, e := range candidates {
		if r < e.Count {
			return e, true
		}
		r -= e.Count
	}
	return candidates[0], true
}

// ProbeAll returns all book moves for the position, most played first.
func (b *Book) ProbeAll(pos *board.Position) []BookEntry {
	if b == nil {
		return nil
	}
	return slices.Clone(b.entries[pos.Hash])
}

// Add records a move for pos, merging counts with an existing entry.
func (b *Book) Add(pos *board.Position, e BookEntry) {
	list := b.entries[pos.Hash]
	for i := range list {
		if list[i].Move == e.Move {
			list[i].Count += e.Count
			sortEntries(list)
			return
		}
	}
	list = append(list, e)
	sortEntries(list)
	b.entries[pos.Hash] = list
}

// Size returns the number of unique positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
