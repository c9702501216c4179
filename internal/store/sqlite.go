// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// DURABLE TIER (SQLITE)
// =============================================================================

// SQLiteTier is the durable storage tier, backed by a single key-value
// table in a SQLite database under the user's config directory.
type SQLiteTier struct {
	db *sql.DB
}

// NewSQLiteTier opens (creating if needed) the durable store at path.
func NewSQLiteTier(path string) (*SQLiteTier, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage database: %w", err)
	}

	// Single writer per process; more connections just contend.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &SQLiteTier{db: db}, nil
}

// Get returns the stored value for key.
func (t *SQLiteTier) Get(key string) ([]byte, bool) {
	var value []byte
	err := t.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores value under key, replacing any previous value.
func (t *SQLiteTier) Set(key string, value []byte) error {
	_, err := t.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Remove deletes key.
func (t *SQLiteTier) Remove(key string) {
	t.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
}

// Close closes the underlying database.
func (t *SQLiteTier) Close() error {
	return t.db.Close()
}
