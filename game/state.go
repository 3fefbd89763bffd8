package game

import (
	"time"

	"github.com/samber/lo"
)

// Phase is the state of the pending-pair sub-machine.
type Phase int

const (
	Idle Phase = iota
	OneRevealed
	Resolving
	MismatchPending
	Complete
)

// String returns the protocol string for a Phase.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case OneRevealed:
		return "one_revealed"
	case Resolving:
		return "resolving"
	case MismatchPending:
		return "mismatch_pending"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// GameState is the authoritative state of one game instance.
// Values handed out by the Engine are deep copies.
type GameState struct {
	GameID     string
	GridSize   int
	TotalPairs int
	Cards      []Card

	// Pending holds up to two card IDs, in click order, awaiting resolution.
	Pending []string
	// Mismatch holds the two IDs of a failed pair until the revert fires.
	Mismatch []string

	MatchedPairs int
	Moves        int

	// StartedAt is zero until a game has been started.
	StartedAt time.Time
	// CompletedAt is set once, when MatchedPairs reaches TotalPairs.
	CompletedAt time.Time
}

// Started reports whether a game has been started.
func (s GameState) Started() bool {
	return !s.StartedAt.IsZero()
}

// Completed reports whether every pair has been found.
func (s GameState) Completed() bool {
	return !s.CompletedAt.IsZero()
}

// Phase derives the sub-machine state from Pending and Mismatch.
func (s GameState) Phase() Phase {
	switch {
	case s.Completed():
		return Complete
	case len(s.Mismatch) > 0:
		return MismatchPending
	case len(s.Pending) == 1:
		return OneRevealed
	case len(s.Pending) == 2:
		return Resolving
	default:
		return Idle
	}
}

// Card returns a pointer to the card with the given ID, or nil.
func (s *GameState) Card(id string) *Card {
	for i := range s.Cards {
		if s.Cards[i].ID == id {
			return &s.Cards[i]
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *GameState) Clone() GameState {
	c := *s
	c.Cards = append([]Card(nil), s.Cards...)
	c.Pending = append([]string(nil), s.Pending...)
	c.Mismatch = append([]string(nil), s.Mismatch...)
	return c
}

// CardView is the client-facing representation of a card.
// ContentKey is only included when the card is revealed or matched.
type CardView struct {
	ID         string `json:"id"`
	ContentKey string `json:"contentKey,omitempty"`
	State      string `json:"state"`
	Mismatch   bool   `json:"mismatch,omitempty"`
}

// StatsView is the client-facing representation of Stats.
type StatsView struct {
	TotalMoves       int `json:"totalMoves"`
	TotalTimeSeconds int `json:"totalTimeSeconds"`
	MatchedPairs     int `json:"matchedPairs"`
	AccuracyPercent  int `json:"accuracyPercent"`
}

// GameStateMsg is the full game state sent to the presentation layer.
type GameStateMsg struct {
	Type              string     `json:"type"`
	GameID            string     `json:"gameId"`
	GridSize          int        `json:"gridSize"`
	TotalPairs        int        `json:"totalPairs"`
	Cards             []CardView `json:"cards"`
	PendingIDs        []string   `json:"pendingIds"`
	MismatchIDs       []string   `json:"mismatchIds"`
	Phase             string     `json:"phase"`
	Stats             StatsView  `json:"stats"`
	StartedAtUnixMs   int64      `json:"startedAtUnixMs,omitempty"`
	CompletedAtUnixMs int64      `json:"completedAtUnixMs,omitempty"`
}

// BuildCardViews constructs the client-facing card list.
// Hidden cards do not expose their content key.
func BuildCardViews(s *GameState) []CardView {
	return lo.Map(s.Cards, func(card Card, _ int) CardView {
		cv := CardView{
			ID:       card.ID,
			State:    card.State().String(),
			Mismatch: lo.Contains(s.Mismatch, card.ID),
		}
		if card.FaceUp || card.Matched {
			cv.ContentKey = card.ContentKey
		}
		return cv
	})
}

// BuildStatsView converts Stats to its wire form.
func BuildStatsView(st Stats) StatsView {
	return StatsView{
		TotalMoves:       st.TotalMoves,
		TotalTimeSeconds: st.TotalTimeSeconds,
		MatchedPairs:     st.MatchedPairs,
		AccuracyPercent:  st.AccuracyPercent,
	}
}

// BuildStateMsg returns the game_state message for s and the given stats.
func BuildStateMsg(s *GameState, st Stats) GameStateMsg {
	pending := s.Pending
	if pending == nil {
		pending = []string{}
	}
	mismatch := s.Mismatch
	if mismatch == nil {
		mismatch = []string{}
	}
	msg := GameStateMsg{
		Type:        "game_state",
		GameID:      s.GameID,
		GridSize:    s.GridSize,
		TotalPairs:  s.TotalPairs,
		Cards:       BuildCardViews(s),
		PendingIDs:  pending,
		MismatchIDs: mismatch,
		Phase:       s.Phase().String(),
		Stats:       BuildStatsView(st),
	}
	if s.Started() {
		msg.StartedAtUnixMs = s.StartedAt.UnixMilli()
	}
	if s.Completed() {
		msg.CompletedAtUnixMs = s.CompletedAt.UnixMilli()
	}
	return msg
}
