// Package db opens the SQLite database behind the settings and narration
// stores and keeps its schema current.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// migrations are applied in order; PRAGMA user_version records how many ran.
// Append only.
var migrations = []string{
	`CREATE TABLE settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE narrations (
		id         TEXT PRIMARY KEY,
		poi_id     TEXT NOT NULL DEFAULT '',
		poi_name   TEXT NOT NULL DEFAULT '',
		text       TEXT NOT NULL DEFAULT '',
		direction  TEXT NOT NULL DEFAULT '',
		distance_m INTEGER NOT NULL DEFAULT 0,
		manual     INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX idx_narrations_created ON narrations(created_at)`,
}

// Init opens the database at path and migrates it. ":memory:" and "file:"
// DSNs are passed to the driver unchanged; other paths get their directory
// created and WAL enabled.
func Init(path string) (*DB, error) {
	inMemory := path == ":memory:" || strings.HasPrefix(path, "file:")
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// One connection: no SQLITE_BUSY between our own goroutines, and an
	// in-memory database lives exactly as long as it.
	conn.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA busy_timeout=30000"}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	d := &DB{conn}
	if err := d.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return d, nil
}

// SchemaVersion returns the number of applied migrations.
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := d.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func (d *DB) migrate(ctx context.Context) error {
	current, err := d.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	for i := current; i < len(migrations); i++ {
		tx, err := d.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// PruneNarrations deletes narration rows created before cutoff.
func (d *DB) PruneNarrations(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.ExecContext(ctx, "DELETE FROM narrations WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
