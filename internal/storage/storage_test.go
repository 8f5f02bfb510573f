package storage

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorage(t *testing.T) {
	s := openTemp(t)

	t.Run("GameRoundTrip", func(t *testing.T) {
		rec := GameRecord{
			Started:   time.Now().Add(-time.Minute).Truncate(time.Second),
			StartSFEN: "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1",
			Moves:     []string{"7g7f", "3c3d"},
			Result:    "win",
		}
		id, err := s.SaveGame(rec)
		if err != nil {
			t.Fatalf("SaveGame: %v", err)
		}
		if id == uuid.Nil {
			t.Fatal("Expected an assigned ID")
		}

		got, err := s.LoadGame(id)
		if err != nil {
			t.Fatalf("LoadGame: %v", err)
		}
		if got.ID != id || got.Result != "win" || len(got.Moves) != 2 || got.Moves[1] != "3c3d" {
			t.Errorf("Loaded game mismatch: %+v", got)
		}
		if got.Finished.IsZero() {
			t.Error("Expected Finished to be set")
		}
	})

	t.Run("ListGamesNewestFirst", func(t *testing.T) {
		base := time.Now().Add(time.Hour)
		for i := range 3 {
			if _, err := s.SaveGame(GameRecord{Finished: base.Add(time.Duration(i) * time.Minute), Result: "draw"}); err != nil {
				t.Fatal(err)
			}
		}
		games, err := s.ListGames()
		if err != nil {
			t.Fatal(err)
		}
		if len(games) != 4 {
			t.Fatalf("Expected 4 games, got %d", len(games))
		}
		for i := 1; i < len(games); i++ {
			if games[i].Finished.After(games[i-1].Finished) {
				t.Errorf("Games not sorted newest first at %d", i)
			}
		}
	})

	t.Run("MissingGame", func(t *testing.T) {
		if _, err := s.LoadGame(uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("AnalysisIgnoresMoveNumber", func(t *testing.T) {
		a := Analysis{BestMove: "2g2f", Score: 35, Depth: 12, PV: []string{"2g2f", "8c8d"}}
		if err := s.SaveAnalysis("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1", a); err != nil {
			t.Fatal(err)
		}
		got, err := s.LoadAnalysis("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 57")
		if err != nil {
			t.Fatalf("LoadAnalysis: %v", err)
		}
		if got.BestMove != "2g2f" || got.Depth != 12 || got.Saved.IsZero() {
			t.Errorf("Loaded analysis mismatch: %+v", got)
		}

		if _, err := s.LoadAnalysis("9/9/9/9/9/9/9/9/9 b - 1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestSubdirCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	db, err := GetDatabaseDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	eval, err := GetEvalDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if db == eval {
		t.Errorf("db and eval dirs collide: %s", db)
	}
}

func TestGetDataDirHonoursXDG(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("XDG_DATA_HOME only applies on unix")
	}
	base := t.TempDir()
	t.Setenv("XDG_DATA_HOME", base)

	dir, err := GetDataDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(base, appName); dir != want {
		t.Errorf("GetDataDir() = %s, want %s", dir, want)
	}

	s, err := NewStorage("")
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	s.Close()
}
