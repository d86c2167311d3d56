// Package store implements the Item Store (§4.D): a SQLite-backed
// persistent graph of items and attributes, with uniqueness-on-ingest,
// DAG-preserving relations, and cascade delete.
package store

import (
	_ "embed"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the item graph's database connection.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path. If the
// existing database has an incompatible schema, it is deleted and
// recreated.
func Open(dbPath string) (*Store, error) {
	store, err := openDB(dbPath)
	if err != nil {
		if strings.Contains(err.Error(), "no such column") ||
			strings.Contains(err.Error(), "no such table") ||
			strings.Contains(err.Error(), "SQL logic error") {
			if removeErr := os.Remove(dbPath); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("remove incompatible store: %w", removeErr)
			}
			os.Remove(dbPath + "-wal")
			os.Remove(dbPath + "-shm")
			return openDB(dbPath)
		}
		return nil, err
	}
	return store, nil
}

// OpenMemory opens an in-process, non-persistent store, useful for
// tests and for the cmd/slidetap demo mode.
func OpenMemory() (*Store, error) {
	return openDB("file::memory:?cache=shared")
}

func openDB(dbPath string) (*Store, error) {
	if !strings.HasPrefix(dbPath, "file::memory:") {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	escapedPath := strings.ReplaceAll(dbPath, " ", "%20")
	connStr := escapedPath
	if !strings.HasPrefix(dbPath, "file:") {
		connStr = "file:" + escapedPath
	}
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection for collaborators that need raw
// queries (e.g. an export report over the item graph).
func (s *Store) DB() *sql.DB {
	return s.db
}
