package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Storage key prefixes
const (
	prefixGame     = "game/"
	prefixAnalysis = "analysis/"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// GameRecord is one finished game as seen by the engine.
type GameRecord struct {
	ID        uuid.UUID `json:"id"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	StartSFEN string    `json:"start_sfen"`
	Moves     []string  `json:"moves"`
	Result    string    `json:"result"` // win, lose or draw, from gameover
	EngineAs  string    `json:"engine_as,omitempty"`
}

// Analysis is the final result of a search from a root position.
type Analysis struct {
	BestMove string    `json:"best_move"`
	Ponder   string    `json:"ponder,omitempty"`
	Score    int       `json:"score"`
	Depth    int       `json:"depth"`
	Nodes    uint64    `json:"nodes"`
	PV       []string  `json:"pv,omitempty"`
	Saved    time.Time `json:"saved"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database under dataDir, or the platform data
// directory when dataDir is empty.
func NewStorage(dataDir string) (*Storage, error) {
	dbDir, err := GetDatabaseDir(dataDir)
	if err != nil {
		return nil, err
	}
	return Open(dbDir)
}

// Open opens a database in dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Storage) get(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// SaveGame stores a game record, assigning an ID when it has none, and
// returns the ID.
func (s *Storage) SaveGame(rec GameRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Finished.IsZero() {
		rec.Finished = time.Now()
	}
	return rec.ID, s.put(prefixGame+rec.ID.String(), rec)
}

// LoadGame returns the game with the given ID.
func (s *Storage) LoadGame(id uuid.UUID) (GameRecord, error) {
	var rec GameRecord
	err := s.get(prefixGame+id.String(), &rec)
	return rec, err
}

// ListGames returns every stored game, most recently finished first.
func (s *Storage) ListGames() ([]GameRecord, error) {
	var games []GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixGame)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec GameRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			games = append(games, rec)
		}
		return nil
	})
	slices.SortFunc(games, func(a, b GameRecord) int {
		return b.Finished.Compare(a.Finished)
	})
	return games, err
}

// analysisKey drops the move number so transpositions reached at different
// plies share an entry.
func analysisKey(sfen string) string {
	f := strings.Fields(sfen)
	if len(f) > 3 {
		f = f[:3]
	}
	return prefixAnalysis + strings.Join(f, " ")
}

// SaveAnalysis caches the search result for a root position.
func (s *Storage) SaveAnalysis(sfen string, a Analysis) error {
	if a.Saved.IsZero() {
		a.Saved = time.Now()
	}
	return s.put(analysisKey(sfen), a)
}

// LoadAnalysis returns the cached result for sfen, or ErrNotFound.
func (s *Storage) LoadAnalysis(sfen string) (Analysis, error) {
	var a Analysis
	err := s.get(analysisKey(sfen), &a)
	return a, err
}
