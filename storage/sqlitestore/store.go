// Package sqlitestore provides the on-device SQLite implementation of
// storage.Store.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/piazza-xyz/piazza-go/storage"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	did TEXT NOT NULL,
	organization_id TEXT NOT NULL,
	record TEXT NOT NULL,
	PRIMARY KEY (did, organization_id)
);`

var _ storage.Store = (*Store)(nil)

// Store is a SQLite-backed user-record store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) a SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) GetUser(ctx context.Context, key storage.Key) (*storage.UserRecord, error) {
	var raw string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT record FROM users WHERE did = ? AND organization_id = ?`,
		key.DID, key.OrganizationID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user record: %w", err)
	}

	var record storage.UserRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	return &record, nil
}

func (s *Store) SaveUser(ctx context.Context, record *storage.UserRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (did, organization_id, record) VALUES (?, ?, ?)
		 ON CONFLICT (did, organization_id) DO UPDATE SET record = excluded.record`,
		record.DID, record.OrganizationID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("write user record: %w", err)
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count user records: %w", err)
	}
	return count, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
