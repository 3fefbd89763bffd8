package storage

import (
	"context"
	"time"
)

// Event is one telemetry row. Moves, Seconds and Accuracy are only set for
// game_completed; FromGridSize only for grid_size_changed.
type Event struct {
	GameID       string
	Type         string
	UserID       string
	GridSize     int
	FromGridSize int
	Moves        int
	Seconds      int
	Accuracy     int
	At           time.Time
}

// GridSummary aggregates games of one grid size.
type GridSummary struct {
	GridSize    int     `json:"grid_size"`
	Started     int     `json:"started"`
	Completed   int     `json:"completed"`
	AvgMoves    float64 `json:"avg_moves"`
	AvgSeconds  float64 `json:"avg_seconds"`
	AvgAccuracy float64 `json:"avg_accuracy"`
	BestSeconds *int    `json:"best_seconds"` // null until a game of this size is completed
}

// GameRecord is a completed game for the history API.
type GameRecord struct {
	GameID      string `json:"game_id"`
	GridSize    int    `json:"grid_size"`
	Moves       int    `json:"moves"`
	Seconds     int    `json:"seconds"`
	Accuracy    int    `json:"accuracy"`
	CompletedAt string `json:"completed_at"` // ISO8601
}

// EventStore abstracts persistence for gameplay telemetry.
// Implementations can be swapped for testing or different backends.
type EventStore interface {
	// Write
	RecordEvent(ctx context.Context, ev Event) error

	// Read
	Summary(ctx context.Context) ([]GridSummary, error)
	ListByUserID(ctx context.Context, userID string, limit int) ([]GameRecord, error)

	// Lifecycle
	Close()
}

// Ensure both backends implement EventStore at compile time.
var (
	_ EventStore = (*Store)(nil)
	_ EventStore = (*SQLiteStore)(nil)
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
