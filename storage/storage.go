package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS game_events (
	id             UUID PRIMARY KEY,
	game_id        TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	user_id        TEXT NOT NULL DEFAULT '',
	grid_size      INT  NOT NULL,
	from_grid_size INT  NOT NULL DEFAULT 0,
	moves          INT  NOT NULL DEFAULT 0,
	seconds        INT  NOT NULL DEFAULT 0,
	accuracy       INT  NOT NULL DEFAULT 0,
	occurred_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_game_events_grid_type ON game_events(grid_size, event_type);
CREATE INDEX IF NOT EXISTS idx_game_events_user ON game_events(user_id) WHERE user_id <> '';
`

const summarySQL = `
SELECT grid_size,
	COUNT(*) FILTER (WHERE event_type = 'game_started'),
	COUNT(*) FILTER (WHERE event_type = 'game_completed'),
	COALESCE(AVG(moves) FILTER (WHERE event_type = 'game_completed'), 0)::float8,
	COALESCE(AVG(seconds) FILTER (WHERE event_type = 'game_completed'), 0)::float8,
	COALESCE(AVG(accuracy) FILTER (WHERE event_type = 'game_completed'), 0)::float8,
	MIN(seconds) FILTER (WHERE event_type = 'game_completed')
FROM game_events
WHERE event_type IN ('game_started', 'game_completed')
GROUP BY grid_size
ORDER BY grid_size`

// Store persists telemetry in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the game_events table exists.
// If databaseURL is empty, NewStore returns (nil, nil) and no persistence occurs.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// RecordEvent inserts one telemetry row.
func (s *Store) RecordEvent(ctx context.Context, ev Event) error {
	if s == nil || s.pool == nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game_events (id, game_id, event_type, user_id, grid_size, from_grid_size, moves, seconds, accuracy, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.NewString(), ev.GameID, ev.Type, ev.UserID, ev.GridSize, ev.FromGridSize, ev.Moves, ev.Seconds, ev.Accuracy, at)
	return err
}

// Summary returns per-grid-size aggregates ordered by grid size.
func (s *Store) Summary(ctx context.Context) ([]GridSummary, error) {
	if s == nil || s.pool == nil {
		return []GridSummary{}, nil
	}
	rows, err := s.pool.Query(ctx, summarySQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []GridSummary{}
	for rows.Next() {
		var g GridSummary
		if err := rows.Scan(&g.GridSize, &g.Started, &g.Completed, &g.AvgMoves, &g.AvgSeconds, &g.AvgAccuracy, &g.BestSeconds); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListByUserID returns the user's completed games, most recent first.
func (s *Store) ListByUserID(ctx context.Context, userID string, limit int) ([]GameRecord, error) {
	if s == nil || s.pool == nil || strings.TrimSpace(userID) == "" {
		return []GameRecord{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT game_id, grid_size, moves, seconds, accuracy, occurred_at
		FROM game_events
		WHERE user_id = $1 AND event_type = 'game_completed'
		ORDER BY occurred_at DESC
		LIMIT $2`,
		userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []GameRecord{}
	for rows.Next() {
		var r GameRecord
		var completedAt time.Time
		if err := rows.Scan(&r.GameID, &r.GridSize, &r.Moves, &r.Seconds, &r.Accuracy, &completedAt); err != nil {
			return nil, err
		}
		r.CompletedAt = completedAt.UTC().Format(time.RFC3339)
		out = append(out, r)
	}
	return out, rows.Err()
}
