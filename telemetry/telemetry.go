// Package telemetry records game lifecycle events: game started, game
// completed with its final stats, and grid size changes.
package telemetry

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"memory-match-server/game"
	"memory-match-server/storage"
)

// Sink receives attributed telemetry records. Record must not block.
type Sink interface {
	Record(ev storage.Event)
}

// FromGame converts an engine event into a storage row attributed to userID.
func FromGame(ev game.Event, userID string) storage.Event {
	rec := storage.Event{
		GameID:       ev.GameID,
		Type:         string(ev.Type),
		UserID:       userID,
		GridSize:     ev.GridSize,
		FromGridSize: ev.FromGridSize,
		At:           ev.At,
	}
	if ev.Type == game.EventGameCompleted {
		rec.Moves = ev.Stats.TotalMoves
		rec.Seconds = ev.Stats.TotalTimeSeconds
		rec.Accuracy = ev.Stats.AccuracyPercent
	}
	return rec
}

// ForUser adapts s to a game.EventSink. userID is read at emit time so a
// player who authenticates mid-game is attributed from then on. userID may be nil.
func ForUser(s Sink, userID func() string) game.EventSink {
	return game.EventSinkFunc(func(ev game.Event) {
		var id string
		if userID != nil {
			id = userID()
		}
		s.Record(FromGame(ev, id))
	})
}

// Multi fans a record out to every sink in order.
type Multi []Sink

// Record implements Sink.
func (m Multi) Record(ev storage.Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ev)
		}
	}
}

// SlogSink logs each record.
type SlogSink struct {
	Logger *slog.Logger
}

// Record implements Sink.
func (s SlogSink) Record(ev storage.Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"tag", "telemetry", "game", ev.GameID, "grid", ev.GridSize}
	switch ev.Type {
	case string(game.EventGameCompleted):
		attrs = append(attrs, "moves", ev.Moves, "seconds", ev.Seconds, "accuracy", ev.Accuracy)
	case string(game.EventGridSizeChanged):
		attrs = append(attrs, "from", ev.FromGridSize)
	}
	if ev.UserID != "" {
		attrs = append(attrs, "user", ev.UserID)
	}
	logger.Info(ev.Type, attrs...)
}

const writeTimeout = 5 * time.Second

// StoreSink queues records and writes them to an EventStore from Run, so
// gameplay never waits on the database. Records arriving while the queue is
// full are dropped and counted.
type StoreSink struct {
	store   storage.EventStore
	queue   chan storage.Event
	dropped atomic.Int64
}

// NewStoreSink returns a sink with a queue of the given size.
func NewStoreSink(store storage.EventStore, size int) *StoreSink {
	if size <= 0 {
		size = 256
	}
	return &StoreSink{store: store, queue: make(chan storage.Event, size)}
}

// Record implements Sink.
func (s *StoreSink) Record(ev storage.Event) {
	select {
	case s.queue <- ev:
	default:
		n := s.dropped.Add(1)
		slog.Warn("telemetry queue full, dropping event", "tag", "telemetry", "type", ev.Type, "dropped", n)
	}
}

// Dropped returns how many records were discarded because the queue was full.
func (s *StoreSink) Dropped() int64 {
	return s.dropped.Load()
}

// Run writes queued records until ctx is cancelled, then flushes what is
// already queued and returns.
func (s *StoreSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case ev := <-s.queue:
			s.write(ev)
		}
	}
}

func (s *StoreSink) flush() {
	for {
		select {
		case ev := <-s.queue:
			s.write(ev)
		default:
			return
		}
	}
}

func (s *StoreSink) write(ev storage.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.store.RecordEvent(ctx, ev); err != nil {
		slog.Error("telemetry write failed", "tag", "telemetry", "type", ev.Type, "game", ev.GameID, "err", err)
	}
}
