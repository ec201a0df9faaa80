// Package store persists runtime settings and the narration log.
package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"driveguide/pkg/db"
	"driveguide/pkg/model"
)

// StateStore is a string key/value store for runtime settings.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// NarrationStore keeps delivered narrations.
type NarrationStore interface {
	SaveNarration(ctx context.Context, ev model.NarrationEvent) error
	RecentNarrations(ctx context.Context, limit int) ([]model.NarrationEvent, error)
}

// SQLiteStore implements StateStore and NarrationStore on top of db.DB.
type SQLiteStore struct {
	db  *db.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on an initialized database.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d, now: time.Now}
}

// GetState returns the value for key. Read errors other than a missing row
// are logged and reported as a miss so callers fall back to static config.
func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false
	case err != nil:
		slog.Warn("Settings read failed", "key", key, "error", err)
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, val, s.now().UnixMilli())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	return err
}

// SaveNarration records ev; saving the same id twice keeps the first row.
func (s *SQLiteStore) SaveNarration(ctx context.Context, ev model.NarrationEvent) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO narrations (id, poi_id, poi_name, text, direction, distance_m, manual, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		ev.ID, ev.POIID, ev.POIName, ev.Text, string(ev.Direction), ev.DistanceMeters, ev.Manual, ev.Timestamp.UnixMilli())
	return err
}

// RecentNarrations returns up to limit narrations, newest first.
func (s *SQLiteStore) RecentNarrations(ctx context.Context, limit int) ([]model.NarrationEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, poi_id, poi_name, text, direction, distance_m, manual, created_at
		FROM narrations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.NarrationEvent, 0, limit)
	for rows.Next() {
		var (
			ev        model.NarrationEvent
			direction string
			createdAt int64
		)
		if err := rows.Scan(&ev.ID, &ev.POIID, &ev.POIName, &ev.Text, &direction, &ev.DistanceMeters, &ev.Manual, &createdAt); err != nil {
			return nil, err
		}
		ev.Direction = model.Direction(direction)
		ev.Timestamp = time.UnixMilli(createdAt).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}
