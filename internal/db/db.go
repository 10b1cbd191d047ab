// Package db persists session history: one row per hosted session plus a
// transcript of the classified events it produced.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the single sqlite connection shared by the repositories.
type DB struct {
	conn *sql.DB
}

// Transcript appends arrive one per classified event while the HTTP API
// reads history concurrently, so the connection runs in WAL mode with a
// busy timeout instead of failing fast on contention. Foreign keys keep
// transcript rows from outliving their session.
var connPragmas = []string{
	`PRAGMA journal_mode = WAL`,
	`PRAGMA busy_timeout = 5000`,
	`PRAGMA foreign_keys = ON`,
}

// Open creates the sqlite file at path if needed, applies the connection
// pragmas and brings the schema up to date.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("db: create data dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("db: open %q: %w", path, err)
	}

	// A pool of one avoids SQLITE_BUSY between the controller's append
	// path and the API's read path.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range connPragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("db: %s: %w", pragma, err)
		}
	}

	if err := RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

// SQL exposes the underlying connection for the repositories.
func (d *DB) SQL() *sql.DB { return d.conn }

func (d *DB) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
