// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C toolchain, and
// cross-compilation just works. It registers itself with database/sql as the
// "sqlite" driver.
//
// TIMESTAMPS:
// created_at and updated_at are stored as INTEGER unix nanoseconds rather
// than DATETIME text. Ordering the gallery is then a plain numeric sort, and
// the (created_at, id) keyset used for cursors compares exactly.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements repository.OutfitRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/raave.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so pin the pool to a single connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets gallery reads proceed while a generation is being persisted.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Concurrent upserts from parallel requests wait instead of failing with SQLITE_BUSY.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS outfits (
			id                     TEXT PRIMARY KEY,
			handle                 TEXT NOT NULL UNIQUE,
			platform               TEXT NOT NULL DEFAULT 'twitter',
			style                  TEXT NOT NULL,
			original_image_url     TEXT,
			generated_image_base64 TEXT NOT NULL,
			created_at             INTEGER NOT NULL,
			updated_at             INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_outfits_created_at ON outfits(created_at DESC, id DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating outfits table: %w", err)
	}

	return nil
}
