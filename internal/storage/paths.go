// Package storage provides persistent storage for game records and cached
// search results.
package storage

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
)

const appName = "shogiplay"

// GetDataDir returns the per-user data directory, creating it:
// ~/Library/Application Support/shogiplay on macOS, %APPDATA%\shogiplay on
// Windows and $XDG_DATA_HOME/shogiplay (default ~/.local/share) elsewhere.
func GetDataDir() (string, error) {
	base, err := platformBase()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func platformBase() (string, error) {
	env, fallback := "XDG_DATA_HOME", []string{".local", "share"}
	switch runtime.GOOS {
	case "darwin":
		env, fallback = "", []string{"Library", "Application Support"}
	case "windows":
		env, fallback = "APPDATA", []string{"AppData", "Roaming"}
	}
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{home}, fallback...)...), nil
}

// subdir returns dir/name, creating it. An empty dir means GetDataDir.
func subdir(dir, name string) (string, error) {
	if dir == "" {
		var err error
		if dir, err = GetDataDir(); err != nil {
			return "", err
		}
	}
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(p, 0755); err != nil {
		return "", err
	}
	return p, nil
}

// GetEvalDir returns the directory searched for evaluator weight files.
func GetEvalDir(dataDir string) (string, error) {
	return subdir(dataDir, "eval")
}

// GetDatabaseDir returns the directory for storing the BadgerDB database.
func GetDatabaseDir(dataDir string) (string, error) {
	dbDir, err := subdir(dataDir, "db")
	if err != nil {
		return "", err
	}
	log.Debug().Str("dir", dbDir).Msg("database directory")
	return dbDir, nil
}
