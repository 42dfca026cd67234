package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for fitted Tree-BPE models.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS models (
  id               INTEGER PRIMARY KEY,
  name             TEXT NOT NULL UNIQUE,
  token_delimiter  TEXT NOT NULL DEFAULT '_',
  sequence_hash    TEXT NOT NULL,
  merges_requested INTEGER NOT NULL DEFAULT 0,
  nodes_before     INTEGER NOT NULL DEFAULT 0,
  nodes_after      INTEGER NOT NULL DEFAULT 0,
  created_at       TIMESTAMP
);

-- Base type labels; position is the label's type id.
CREATE TABLE IF NOT EXISTS type_labels (
  model_id        INTEGER NOT NULL REFERENCES models(id) ON DELETE CASCADE,
  position        INTEGER NOT NULL,
  label           TEXT NOT NULL,
  PRIMARY KEY (model_id, position)
);

-- Composite types; position is the pair table index.
CREATE TABLE IF NOT EXISTS type_pairs (
  model_id        INTEGER NOT NULL REFERENCES models(id) ON DELETE CASCADE,
  position        INTEGER NOT NULL,
  parent_type     INTEGER NOT NULL,
  child_type      INTEGER NOT NULL,
  PRIMARY KEY (model_id, position)
);

CREATE TABLE IF NOT EXISTS merge_steps (
  model_id        INTEGER NOT NULL REFERENCES models(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  type_id         INTEGER NOT NULL,
  label           TEXT NOT NULL,
  count           INTEGER NOT NULL DEFAULT 0,
  merged          INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (model_id, ordinal)
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_merge_steps_label ON merge_steps(label);
`

// GetMetadata returns the value stored under key, or "" if absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value.String, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}
