package game

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"memory-match-server/clock"
	"memory-match-server/config"
	"memory-match-server/matcherrors"
)

// Outcome describes what a RevealCard call did.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeFirstRevealed
	OutcomeMatch
	OutcomeMismatch
	OutcomeCompleted
)

// String returns the string representation of an Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeFirstRevealed:
		return "first_revealed"
	case OutcomeMatch:
		return "match"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Observer is called with a snapshot after every state change. Observers run
// one at a time in mutation order and must not call back into the Engine.
type Observer func(state GameState, stats Stats)

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithScheduler sets the scheduler used for the mismatch revert.
func WithScheduler(s clock.Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithRand sets the random source used to build decks.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithEventSink sets the telemetry sink.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// Engine owns one player's GameState and applies every transition to it.
//
// All methods are safe for concurrent use. A single mutex guards the state;
// the mismatch revert runs on the scheduler and re-enters through the same
// mutex, carrying the generation of the game it was scheduled for so a revert
// from a replaced game is dropped.
type Engine struct {
	mu          sync.Mutex
	state       GameState
	pool        []string
	generation  uint64
	revertTimer clock.Timer
	final       *Stats

	observers  map[int]Observer
	nextObsID  int
	notifyMu   sync.Mutex
	clock      clock.Clock
	scheduler  clock.Scheduler
	rng        *rand.Rand
	sink       EventSink
	revealWait time.Duration
	maxGrid    int
}

// NewEngine creates an Engine with no game in progress.
func NewEngine(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		observers:  make(map[int]Observer),
		clock:      clock.Real{},
		scheduler:  clock.Real{},
		sink:       nopSink{},
		revealWait: time.Duration(cfg.RevealDurationMS) * time.Millisecond,
		maxGrid:    cfg.MaxGridSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(e.clock.Now().UnixNano()))
	}
	return e
}

// StartNewGame builds a fresh deck and replaces the current game. Any
// pending mismatch revert from the previous game is cancelled.
func (e *Engine) StartNewGame(gridSize int, pool []string) (GameState, error) {
	e.mu.Lock()
	events, err := e.startLocked(gridSize, pool)
	if err != nil {
		e.mu.Unlock()
		return GameState{}, err
	}
	return e.commit(events), nil
}

// SetGridSize starts a new game of the given size with the content pool of
// the previous game. It always starts a new game, and emits
// EventGridSizeChanged when the size differs from the previous one.
func (e *Engine) SetGridSize(gridSize int) (GameState, error) {
	e.mu.Lock()
	if len(e.pool) == 0 {
		e.mu.Unlock()
		return GameState{}, matcherrors.ErrNoGameInProgress
	}
	prev := e.state.GridSize
	events, err := e.startLocked(gridSize, e.pool)
	if err != nil {
		e.mu.Unlock()
		return GameState{}, err
	}
	if prev != gridSize {
		changed := Event{
			Type:         EventGridSizeChanged,
			GameID:       e.state.GameID,
			At:           e.state.StartedAt,
			GridSize:     gridSize,
			FromGridSize: prev,
		}
		events = append([]Event{changed}, events...)
	}
	return e.commit(events), nil
}

func (e *Engine) startLocked(gridSize int, pool []string) ([]Event, error) {
	if err := ValidateGridSize(gridSize, e.maxGrid); err != nil {
		return nil, err
	}
	cards, err := BuildDeck(gridSize, pool, e.rng)
	if err != nil {
		return nil, fmt.Errorf("building deck: %w", err)
	}

	if e.revertTimer != nil {
		e.revertTimer.Stop()
		e.revertTimer = nil
	}
	e.generation++

	now := e.clock.Now()
	e.pool = append([]string(nil), pool...)
	e.final = nil
	e.state = GameState{
		GameID:     ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		GridSize:   gridSize,
		TotalPairs: len(cards) / 2,
		Cards:      cards,
		StartedAt:  now,
	}

	slog.Info("game started", "tag", "game", "game", e.state.GameID, "grid", gridSize, "pairs", e.state.TotalPairs)
	return []Event{{
		Type:     EventGameStarted,
		GameID:   e.state.GameID,
		At:       now,
		GridSize: gridSize,
	}}, nil
}

// RevealCard flips the card with the given ID. Requests that break the rules
// (game over, unknown card, card already up or matched, two cards pending)
// leave the state untouched and return OutcomeIgnored.
func (e *Engine) RevealCard(cardID string) (GameState, Outcome) {
	e.mu.Lock()
	outcome, events := e.revealLocked(cardID)
	if outcome == OutcomeIgnored {
		snap := e.state.Clone()
		e.mu.Unlock()
		return snap, outcome
	}
	return e.commit(events), outcome
}

func (e *Engine) revealLocked(cardID string) (Outcome, []Event) {
	s := &e.state
	if s.Completed() {
		return OutcomeIgnored, nil
	}
	card := s.Card(cardID)
	if card == nil || card.FaceUp || card.Matched {
		return OutcomeIgnored, nil
	}
	if len(s.Pending) >= 2 {
		return OutcomeIgnored, nil
	}

	card.FaceUp = true
	s.Pending = append(s.Pending, cardID)
	if len(s.Pending) < 2 {
		return OutcomeFirstRevealed, nil
	}

	// Second card: evaluate the pair
	first := s.Card(s.Pending[0])
	second := card
	s.Moves++

	if first.ContentKey == second.ContentKey {
		first.Matched = true
		second.Matched = true
		s.Pending = nil
		s.MatchedPairs++
		if s.MatchedPairs < s.TotalPairs {
			return OutcomeMatch, nil
		}

		s.CompletedAt = e.clock.Now()
		final := Project(s, s.CompletedAt)
		e.final = &final
		slog.Info("game completed", "tag", "game", "game", s.GameID, "moves", final.TotalMoves,
			"seconds", final.TotalTimeSeconds, "accuracy", final.AccuracyPercent)
		return OutcomeCompleted, []Event{{
			Type:     EventGameCompleted,
			GameID:   s.GameID,
			At:       s.CompletedAt,
			GridSize: s.GridSize,
			Stats:    final,
		}}
	}

	// No match: keep both up and highlighted; Pending stays full so further
	// reveals are ignored until the revert fires.
	s.Mismatch = []string{first.ID, second.ID}
	gen := e.generation
	e.revertTimer = e.scheduler.AfterFunc(e.revealWait, func() {
		e.revertMismatch(gen)
	})
	return OutcomeMismatch, nil
}

// revertMismatch flips a mismatched pair back down. It does nothing if the
// game it was scheduled for has been replaced.
func (e *Engine) revertMismatch(gen uint64) {
	e.mu.Lock()
	if gen != e.generation || len(e.state.Mismatch) == 0 {
		e.mu.Unlock()
		slog.Debug("stale mismatch revert dropped", "tag", "game", "generation", gen)
		return
	}
	for _, id := range e.state.Mismatch {
		if card := e.state.Card(id); card != nil && !card.Matched {
			card.FaceUp = false
		}
	}
	e.state.Pending = nil
	e.state.Mismatch = nil
	e.revertTimer = nil
	e.commit(nil)
}

// commit must be called with e.mu held and releases it. It emits events and
// notifies observers with a snapshot of the new state, in mutation order.
func (e *Engine) commit(events []Event) GameState {
	snap := e.state.Clone()
	stats := e.statsLocked()
	observers := make([]Observer, 0, len(e.observers))
	for id := 0; id < e.nextObsID; id++ {
		if fn, ok := e.observers[id]; ok {
			observers = append(observers, fn)
		}
	}
	e.notifyMu.Lock()
	e.mu.Unlock()
	defer e.notifyMu.Unlock()

	for _, ev := range events {
		e.sink.Emit(ev)
	}
	for _, fn := range observers {
		fn(snap.Clone(), stats)
	}
	return snap
}

// State returns a snapshot of the current game.
func (e *Engine) State() GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Stats returns live stats, or the frozen final stats once the game is complete.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statsLocked()
}

// Snapshot returns the current game and its stats taken under one lock.
func (e *Engine) Snapshot() (GameState, Stats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), e.statsLocked()
}

func (e *Engine) statsLocked() Stats {
	if e.final != nil {
		return *e.final
	}
	return Project(&e.state, e.clock.Now())
}

// Subscribe registers fn to be called after every state change. The returned
// function removes the subscription.
func (e *Engine) Subscribe(fn Observer) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextObsID
	e.nextObsID++
	e.observers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.observers, id)
	}
}

// Close cancels any pending revert. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.revertTimer != nil {
		e.revertTimer.Stop()
		e.revertTimer = nil
	}
	e.generation++
}
