// Package state provides the persisted key-value store backing
// conversation memory and the digest cache. Values are JSON documents;
// a missing key reads as absent, never as an error. Each write
// overwrites the whole value in a single statement, so readers never
// observe a partial write.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Well-known keys. The store holds exactly one value per concern.
const (
	KeyConversation = "conversation"
	KeyDigestCache  = "digest_cache"
)

// Store is a key-value store backed by SQLite. All public methods are
// safe for concurrent use (SQLite serializes writes).
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the store at the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_state (
		key        TEXT NOT NULL PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the raw value for a key. Returns "" and nil error when
// the key does not exist.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM kv_state WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts a key. The existing value is replaced whole.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv_state (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. No error when the key does not exist.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the stored value into out. Returns false when the
// key is missing or the stored value is not valid JSON for out;
// corrupt state reads as empty rather than failing the caller.
func (s *Store) GetJSON(key string, out any) (bool, error) {
	raw, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func (s *Store) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Set(key, string(data))
}
