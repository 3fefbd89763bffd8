// Package ai is a memory-limited autoplayer. It sees only what a human would
// see (the client view of the board) and remembers revealed cards imperfectly.
package ai

import (
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"memory-match-server/config"
	"memory-match-server/game"
	"memory-match-server/matcherrors"
)

// ErrStuck is returned by Play when the board stops changing for
// maxIdleSteps consecutive steps.
var ErrStuck = errors.New("autoplayer made no progress")

// maxIdleSteps bounds how many steps Play waits without any state change.
const maxIdleSteps = 100

// flipReason describes why the player chose a card (for logging).
const (
	flipReasonKnownPair = "known_pair"
	flipReasonRandom    = "random"
	flipReasonWait      = "wait"
)

// Player picks cards for one game at a time.
type Player struct {
	params config.AIParams
	rng    *rand.Rand
	memory map[string]string // card id -> content key seen face-up
}

// NewPlayer creates a player with the given profile.
func NewPlayer(params config.AIParams, rng *rand.Rand) *Player {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Player{
		params: params,
		rng:    rng,
		memory: make(map[string]string),
	}
}

// Name returns the profile name.
func (p *Player) Name() string { return p.params.Name }

// Reset clears memory before a new game.
func (p *Player) Reset() {
	p.memory = make(map[string]string)
}

// Observe updates memory from the visible board: every face-up card exposes
// its content key, matched cards are no longer interesting, and then each
// remembered card is forgotten with ForgetChance probability.
func (p *Player) Observe(cards []game.CardView) {
	for _, c := range cards {
		switch {
		case c.State == game.Matched.String():
			delete(p.memory, c.ID)
		case c.ContentKey != "":
			p.memory[c.ID] = c.ContentKey
		}
	}

	forget := clampPercent(p.params.ForgetChance)
	if forget == 0 {
		return
	}
	for _, c := range cards {
		if _, ok := p.memory[c.ID]; ok && p.rng.Intn(100) < forget {
			delete(p.memory, c.ID)
		}
	}
}

// NextMove returns the card to reveal for the given state, or "" when the
// player must wait (mismatch pending) or the game is over.
func (p *Player) NextMove(state *game.GameStateMsg) (cardID, reason string) {
	hidden := hiddenIDs(state.Cards)
	if len(hidden) == 0 {
		return "", flipReasonWait
	}
	useKnownPair := p.rng.Intn(100) < clampPercent(p.params.UseKnownPairChance)

	switch state.Phase {
	case game.Idle.String():
		return p.pickFirst(hidden, useKnownPair)
	case game.OneRevealed.String():
		return p.pickSecond(state, hidden, useKnownPair)
	default:
		return "", flipReasonWait
	}
}

// pickFirst flips one card of a fully remembered pair, or a card it has not seen yet.
func (p *Player) pickFirst(hidden []string, useKnownPair bool) (string, string) {
	if useKnownPair {
		seen := make(map[string]string) // content key -> first hidden id with that key
		for _, id := range hidden {
			key, ok := p.memory[id]
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				return seen[key], flipReasonKnownPair
			}
			seen[key] = id
		}
	}
	return p.pickUnseen(hidden), flipReasonRandom
}

// pickSecond flips the remembered partner of the pending card, or a card it has not seen yet.
func (p *Player) pickSecond(state *game.GameStateMsg, hidden []string, useKnownPair bool) (string, string) {
	if len(state.PendingIDs) == 0 {
		return p.pickFirst(hidden, useKnownPair)
	}
	firstID := state.PendingIDs[0]
	var firstKey string
	for _, c := range state.Cards {
		if c.ID == firstID {
			firstKey = c.ContentKey
			break
		}
	}
	if useKnownPair && firstKey != "" {
		for _, id := range hidden {
			if p.memory[id] == firstKey {
				return id, flipReasonKnownPair
			}
		}
	}
	return p.pickUnseen(hidden), flipReasonRandom
}

// pickUnseen picks a random hidden card that is not in memory, falling back to
// any hidden card.
func (p *Player) pickUnseen(hidden []string) string {
	var unseen []string
	for _, id := range hidden {
		if _, ok := p.memory[id]; !ok {
			unseen = append(unseen, id)
		}
	}
	if len(unseen) == 0 {
		unseen = hidden
	}
	return unseen[p.rng.Intn(len(unseen))]
}

// Play drives e until its game is complete. sleep is called with the think
// delay before each reveal and with revealWait while a mismatch is pending;
// pass a fake clock's Advance to simulate without waiting.
func (p *Player) Play(e *game.Engine, revealWait time.Duration, sleep func(time.Duration)) (game.Stats, error) {
	var last progress
	idle := 0
	for {
		s, st := e.Snapshot()
		if s.Completed() {
			return st, nil
		}
		if !s.Started() {
			return st, matcherrors.ErrNoGameInProgress
		}
		if cur := progressOf(&s); cur != last {
			last = cur
			idle = 0
		} else {
			idle++
		}
		if idle > maxIdleSteps {
			return st, ErrStuck
		}

		msg := game.BuildStateMsg(&s, st)
		p.Observe(msg.Cards)
		id, reason := p.NextMove(&msg)
		if id == "" {
			sleep(revealWait)
			continue
		}
		sleep(p.thinkTime())
		_, outcome := e.RevealCard(id)
		slog.Debug("revealed card", "tag", "ai", "name", p.params.Name, "card", id, "reason", reason, "outcome", outcome)
	}
}

// progress identifies a board position well enough to tell whether a step
// changed anything.
type progress struct {
	gameID   string
	moves    int
	pending  int
	mismatch int
}

func progressOf(s *game.GameState) progress {
	return progress{gameID: s.GameID, moves: s.Moves, pending: len(s.Pending), mismatch: len(s.Mismatch)}
}

func (p *Player) thinkTime() time.Duration {
	ms := p.params.DelayMinMS
	if p.params.DelayMaxMS > p.params.DelayMinMS {
		ms += p.rng.Intn(p.params.DelayMaxMS - p.params.DelayMinMS)
	}
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

func hiddenIDs(cards []game.CardView) []string {
	var out []string
	for _, c := range cards {
		if c.State == game.Hidden.String() {
			out = append(out, c.ID)
		}
	}
	return out
}

func clampPercent(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
