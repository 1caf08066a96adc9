// Package storage persists per-namespace client state as JSON blobs in
// SQLite. Namespaces mirror the client's local-storage keys, so the payload
// is opaque here beyond being valid JSON.
package storage

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

	"evalcoach/internal/logging"
)

const currentVersion = 1

const maxPayloadBytes = 1 << 20

// ErrPayloadTooLarge rejects blobs above the per-namespace size cap.
var ErrPayloadTooLarge = errors.New("storage: payload exceeds size limit")

// ErrInvalidPayload rejects blobs that are not valid JSON.
var ErrInvalidPayload = errors.New("storage: payload is not valid JSON")

// Store is a SQLite-backed namespace blob store.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string, logger logging.Logger) (*Store, error) {
	logger = logging.OrNop(logger)

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:", nil)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		_, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS namespaces (
				name       TEXT PRIMARY KEY,
				payload    TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`)
		if err != nil {
			return fmt.Errorf("create namespaces table: %w", err)
		}
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

// Get returns the stored payload for namespace. The second return is false
// when the namespace has never been written.
func (s *Store) Get(ctx context.Context, namespace string) (json.RawMessage, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM namespaces WHERE name = ?`, namespace).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read namespace %q: %w", namespace, err)
	}
	return json.RawMessage(payload), true, nil
}

// Put stores payload under namespace, replacing any previous blob. The
// payload must be valid JSON.
func (s *Store) Put(ctx context.Context, namespace string, payload json.RawMessage) error {
	if len(payload) > maxPayloadBytes {
		return ErrPayloadTooLarge
	}
	if !json.Valid(payload) {
		return fmt.Errorf("namespace %q: %w", namespace, ErrInvalidPayload)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO namespaces (name, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		namespace, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write namespace %q: %w", namespace, err)
	}
	s.logger.Debug("storage: wrote namespace %s (%d bytes)", namespace, len(payload))
	return nil
}

// Delete removes namespace. Deleting an absent namespace is not an error.
func (s *Store) Delete(ctx context.Context, namespace string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM namespaces WHERE name = ?`, namespace); err != nil {
		return fmt.Errorf("delete namespace %q: %w", namespace, err)
	}
	return nil
}

// Namespaces lists every stored namespace in name order.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM namespaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
