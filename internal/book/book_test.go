package book

import (
	"errors"
	"strings"
	"testing"

	"github.com/hailam/shogiplay/internal/board"
)

const testBook = `#YANEURAOU-DB2016 1.00
sfen lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1
7g7f 3c3d 0 32 3
2g2f 8c8d 12 30 1
5e5d none 0 1 100
sfen lnsgkgsnl/1r5b1/pppppp1pp/6p2/9/2P6/PP1PPPPPP/1B5R1/LNSGKGSNL b - 3
2g2f none -5 28 7
`

func TestBookLoadAndProbe(t *testing.T) {
	book, err := Load(strings.NewReader(testBook))
	if err != nil {
		t.Fatalf("Failed to load book: %v", err)
	}

	if book.Size() != 2 {
		t.Errorf("Expected book size 2, got %d", book.Size())
	}

	pos := board.NewPosition()
	entries := book.ProbeAll(pos)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 legal entries (5e5d dropped), got %d", len(entries))
	}
	if entries[0].Move.String() != "7g7f" || entries[0].Count != 3 {
		t.Errorf("Expected 7g7f with count 3 first, got %s/%d", entries[0].Move, entries[0].Count)
	}
	if entries[0].Ponder.String() != "3c3d" {
		t.Errorf("Expected ponder 3c3d, got %s", entries[0].Ponder)
	}
	if entries[1].Value != 12 || entries[1].Depth != 30 {
		t.Errorf("Wrong value/depth: %+v", entries[1])
	}

	e, found := book.Probe(pos)
	if !found {
		t.Fatal("Expected to find move in book")
	}
	if !pos.IsLegal(e.Move) {
		t.Errorf("Book move %s is not legal", e.Move)
	}
}

func TestBookMoveNumberIgnored(t *testing.T) {
	book, err := Load(strings.NewReader(testBook))
	if err != nil {
		t.Fatal(err)
	}
	pos, err := board.ParseSFEN("lnsgkgsnl/1r5b1/pppppp1pp/6p2/9/2P6/PP1PPPPPP/1B5R1/LNSGKGSNL b - 41")
	if err != nil {
		t.Fatal(err)
	}
	e, found := book.Probe(pos)
	if !found || e.Move.String() != "2g2f" || e.Ponder != board.NoMove {
		t.Errorf("Probe = %+v, %v", e, found)
	}
}

func TestBookWeightedChoice(t *testing.T) {
	book, err := Load(strings.NewReader(testBook))
	if err != nil {
		t.Fatal(err)
	}
	book.SetSeed([32]byte{7})

	pos := board.NewPosition()
	counts := map[string]int{}
	for range 4000 {
		e, _ := book.Probe(pos)
		counts[e.Move.String()]++
	}
	// 3:1 weighting
	if counts["7g7f"] < 2700 || counts["7g7f"] > 3300 {
		t.Errorf("7g7f chosen %d of 4000 times, want about 3000", counts["7g7f"])
	}
	if counts["2g2f"] == 0 {
		t.Error("2g2f was never chosen")
	}
}

func TestBookMiss(t *testing.T) {
	book := New()
	pos := board.NewPosition()

	if _, found := book.Probe(pos); found {
		t.Error("Expected book miss on empty book")
	}

	var nilBook *Book
	if _, found := nilBook.Probe(pos); found {
		t.Error("Expected miss on nil book")
	}
}

func TestBookMalformed(t *testing.T) {
	for _, text := range []string{
		"7g7f none 0 0 1\n",
		"sfen not-a-position\n",
		"sfen lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1\n7g7f none x 0 1\n",
		"sfen lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1\nzz99 none 0 0 1\n",
	} {
		if _, err := Load(strings.NewReader(text)); !errors.Is(err, ErrMalformedBook) {
			t.Errorf("Load(%q) error = %v, want ErrMalformedBook", text, err)
		}
	}
}

func TestBookAdd(t *testing.T) {
	book := New()
	pos := board.NewPosition()
	m, err := board.ParseMove("7g7f", pos)
	if err != nil {
		t.Fatal(err)
	}
	book.Add(pos, BookEntry{Move: m, Count: 2})
	book.Add(pos, BookEntry{Move: m, Count: 5})

	entries := book.ProbeAll(pos)
	if len(entries) != 1 || entries[0].Count != 7 {
		t.Errorf("Add did not merge: %+v", entries)
	}
}
