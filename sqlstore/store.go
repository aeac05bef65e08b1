package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"
)

var (
	ErrInvalidKey  = errors.New("invalid column key")
	ErrRowNotFound = errors.New("row not found")
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS child_rows (
		id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL,
		data TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_child_rows_parent ON child_rows(parent_id)`,
	`CREATE TABLE IF NOT EXISTS column_layouts (
		parent_id TEXT NOT NULL,
		column_id TEXT NOT NULL,
		column_key TEXT NOT NULL,
		label TEXT NOT NULL,
		column_type TEXT NOT NULL,
		width INTEGER NOT NULL,
		order_priority INTEGER NOT NULL,
		hidden INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (parent_id, column_id)
	)`,
	`CREATE TABLE IF NOT EXISTS scroll_offsets (
		parent_id TEXT PRIMARY KEY,
		scroll_top REAL NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// jsonPath turns a column key into a json_extract path. Keys are interpolated
// nowhere else, but are still restricted to identifiers.
func jsonPath(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: `%s`", ErrInvalidKey, key)
	}
	return "$." + key, nil
}

// Store keeps child rows as JSON documents per parent in SQLite, together
// with column layouts and scroll offsets.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	counts singleflight.Group
}

// Open opens (or creates) the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {

	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite %s: %w", path, err)
	}

	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("unable to set WAL mode: %w", err)
		}
	}

	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("unable to migrate: %w", err)
		}
	}

	logger.Info("sqlite store opened", "path", path)

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Layouts is the column persistence view of the store.
func (s *Store) Layouts() *LayoutStore {
	return &LayoutStore{db: s.db}
}

// Cells is the cell commit view of the store.
func (s *Store) Cells() *CellStore {
	return &CellStore{db: s.db, logger: s.logger}
}
