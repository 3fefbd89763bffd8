package game

import "time"

// EventType names a semantic game event.
type EventType string

const (
	EventGameStarted     EventType = "game_started"
	EventGameCompleted   EventType = "game_completed"
	EventGridSizeChanged EventType = "grid_size_changed"
)

// Event is emitted by the Engine for telemetry. Fields that do not apply to
// a given Type are left zero.
type Event struct {
	Type     EventType
	GameID   string
	At       time.Time
	GridSize int

	// FromGridSize is the previous size for EventGridSizeChanged.
	FromGridSize int

	// Final stats for EventGameCompleted.
	Stats Stats
}

// EventSink receives engine events, in order, after the state change that
// produced them. Implementations must not call back into the Engine.
type EventSink interface {
	Emit(ev Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev Event)

// Emit calls f(ev).
func (f EventSinkFunc) Emit(ev Event) { f(ev) }

type nopSink struct{}

func (nopSink) Emit(Event) {}
