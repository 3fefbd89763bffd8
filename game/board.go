package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"memory-match-server/matcherrors"
)

// MinGridSize is the smallest grid that holds at least one pair.
const MinGridSize = 2

// CardState represents the visible state of a card.
type CardState int

const (
	Hidden CardState = iota
	Revealed
	Matched
)

// String returns the string representation of a CardState.
func (cs CardState) String() string {
	switch cs {
	case Hidden:
		return "hidden"
	case Revealed:
		return "revealed"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// Card represents a single card on the board.
// Two cards sharing a ContentKey form a pair. Matched implies FaceUp.
type Card struct {
	ID         string
	ContentKey string
	FaceUp     bool
	Matched    bool
}

// State collapses the two flags into a CardState.
func (c Card) State() CardState {
	switch {
	case c.Matched:
		return Matched
	case c.FaceUp:
		return Revealed
	default:
		return Hidden
	}
}

// PairsFor returns how many pairs a gridSize x gridSize board needs.
func PairsFor(gridSize int) int {
	return gridSize * gridSize / 2
}

// ValidateGridSize checks gridSize against [MinGridSize, maxGridSize].
// A maxGridSize <= 0 disables the upper bound.
func ValidateGridSize(gridSize, maxGridSize int) error {
	if gridSize < MinGridSize || (maxGridSize > 0 && gridSize > maxGridSize) {
		return fmt.Errorf("%w: %d", matcherrors.ErrInvalidGridSize, gridSize)
	}
	return nil
}

// BuildDeck creates a shuffled deck for a gridSize x gridSize board.
//
// pairsNeeded distinct content keys are drawn from pool with a uniform
// shuffle, each key yields two face-down cards, and the full deck is shuffled
// again so pairs are not adjacent. If pool is smaller than pairsNeeded the
// deck is clamped to len(pool) pairs and a warning is logged.
//
// rng drives both shuffles and the card IDs, so a seeded source produces the
// same deck every time.
func BuildDeck(gridSize int, pool []string, rng *rand.Rand) ([]Card, error) {
	if err := ValidateGridSize(gridSize, 0); err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, matcherrors.ErrEmptyContentPool
	}
	if dups := lo.FindDuplicates(pool); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %v", matcherrors.ErrDuplicateContent, dups)
	}

	pairsNeeded := PairsFor(gridSize)
	numPairs := pairsNeeded
	if len(pool) < pairsNeeded {
		numPairs = len(pool)
		slog.Warn("content pool smaller than grid; clamping deck", "tag", "deck",
			"grid", gridSize, "pairsNeeded", pairsNeeded, "pool", len(pool))
	}

	// Select content without replacement
	selected := make([]string, len(pool))
	copy(selected, pool)
	rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	selected = selected[:numPairs]

	cards := make([]Card, 0, 2*numPairs)
	for _, key := range selected {
		for k := 0; k < 2; k++ {
			id, err := uuid.NewRandomFromReader(rng)
			if err != nil {
				return nil, fmt.Errorf("generating card id: %w", err)
			}
			cards = append(cards, Card{ID: id.String(), ContentKey: key})
		}
	}

	// Shuffle card positions
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	return cards, nil
}

// AllMatched returns true if every card in cards is matched.
func AllMatched(cards []Card) bool {
	for _, card := range cards {
		if !card.Matched {
			return false
		}
	}
	return true
}
