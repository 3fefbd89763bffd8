package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteTimeFormat sorts lexically in UTC.
const sqliteTimeFormat = "2006-01-02T15:04:05.000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game_events (
	id             TEXT PRIMARY KEY,
	game_id        TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	user_id        TEXT NOT NULL DEFAULT '',
	grid_size      INTEGER NOT NULL,
	from_grid_size INTEGER NOT NULL DEFAULT 0,
	moves          INTEGER NOT NULL DEFAULT 0,
	seconds        INTEGER NOT NULL DEFAULT 0,
	accuracy       INTEGER NOT NULL DEFAULT 0,
	occurred_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_events_grid_type ON game_events(grid_size, event_type);
CREATE INDEX IF NOT EXISTS idx_game_events_user ON game_events(user_id);`

const sqliteSummarySQL = `
SELECT grid_size,
	SUM(CASE WHEN event_type = 'game_started' THEN 1 ELSE 0 END),
	SUM(CASE WHEN event_type = 'game_completed' THEN 1 ELSE 0 END),
	COALESCE(AVG(CASE WHEN event_type = 'game_completed' THEN moves END), 0),
	COALESCE(AVG(CASE WHEN event_type = 'game_completed' THEN seconds END), 0),
	COALESCE(AVG(CASE WHEN event_type = 'game_completed' THEN accuracy END), 0),
	MIN(CASE WHEN event_type = 'game_completed' THEN seconds END)
FROM game_events
WHERE event_type IN ('game_started', 'game_completed')
GROUP BY grid_size
ORDER BY grid_size`

// SQLiteStore persists telemetry in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: sqlite serializes writers, and :memory: is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	if s != nil && s.db != nil {
		_ = s.db.Close()
	}
}

// RecordEvent inserts one telemetry row.
func (s *SQLiteStore) RecordEvent(ctx context.Context, ev Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_events (id, game_id, event_type, user_id, grid_size, from_grid_size, moves, seconds, accuracy, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), ev.GameID, ev.Type, ev.UserID, ev.GridSize, ev.FromGridSize, ev.Moves, ev.Seconds, ev.Accuracy,
		at.UTC().Format(sqliteTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Summary returns per-grid-size aggregates ordered by grid size.
func (s *SQLiteStore) Summary(ctx context.Context) ([]GridSummary, error) {
	if s == nil || s.db == nil {
		return []GridSummary{}, nil
	}
	rows, err := s.db.QueryContext(ctx, sqliteSummarySQL)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	out := []GridSummary{}
	for rows.Next() {
		var g GridSummary
		var best sql.NullInt64
		if err := rows.Scan(&g.GridSize, &g.Started, &g.Completed, &g.AvgMoves, &g.AvgSeconds, &g.AvgAccuracy, &best); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if best.Valid {
			b := int(best.Int64)
			g.BestSeconds = &b
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListByUserID returns the user's completed games, most recent first.
func (s *SQLiteStore) ListByUserID(ctx context.Context, userID string, limit int) ([]GameRecord, error) {
	if s == nil || s.db == nil || strings.TrimSpace(userID) == "" {
		return []GameRecord{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, grid_size, moves, seconds, accuracy, occurred_at
		 FROM game_events
		 WHERE user_id = ? AND event_type = 'game_completed'
		 ORDER BY occurred_at DESC
		 LIMIT ?`,
		userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []GameRecord{}
	for rows.Next() {
		var r GameRecord
		var occurred string
		if err := rows.Scan(&r.GameID, &r.GridSize, &r.Moves, &r.Seconds, &r.Accuracy, &occurred); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if t, err := time.Parse(sqliteTimeFormat, occurred); err == nil {
			r.CompletedAt = t.UTC().Format(time.RFC3339)
		} else {
			r.CompletedAt = occurred
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
