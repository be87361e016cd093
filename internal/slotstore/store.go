package slotstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS slots (
    name TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// Store manages named slots backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the slot database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create slots table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns the ordered list stored under name. A missing slot reads as
// an empty list.
func (s *Store) Read(ctx context.Context, name string) ([]string, error) {
	var payload string
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM slots WHERE name = ?`, name)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read slot %q: %w", name, err)
	}

	var values []string
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		return nil, fmt.Errorf("decode slot %q payload: %w", name, err)
	}
	return values, nil
}

// Write replaces the entire list stored under name.
func (s *Store) Write(ctx context.Context, name string, values []string) error {
	if values == nil {
		values = []string{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode slot %q payload: %w", name, err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO slots (name, payload, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		name,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write slot %q: %w", name, err)
	}
	return nil
}

// Delete removes a slot. Deleting a missing slot is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete slot %q: %w", name, err)
	}
	return nil
}

// Slot binds a Store to a fixed slot name.
type Slot struct {
	store *Store
	name  string
}

// NewSlot returns a handle for one named slot.
func NewSlot(store *Store, name string) *Slot {
	return &Slot{store: store, name: name}
}

func (s *Slot) Read(ctx context.Context) ([]string, error) {
	return s.store.Read(ctx, s.name)
}

func (s *Slot) Write(ctx context.Context, values []string) error {
	return s.store.Write(ctx, s.name, values)
}
