package ai

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memory-match-server/clock"
	"memory-match-server/config"
	"memory-match-server/game"
	"memory-match-server/matcherrors"
)

func pool(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "key-" + strconv.Itoa(i)
	}
	return out
}

func newEngine(t *testing.T, seed int64) (*game.Engine, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	e := game.NewEngine(&config.Config{MaxGridSize: 8, RevealDurationMS: 1000},
		game.WithClock(fake),
		game.WithScheduler(fake),
		game.WithRand(rand.New(rand.NewSource(seed))),
	)
	t.Cleanup(e.Close)
	return e, fake
}

func TestObserveRemembersFaceUpCards(t *testing.T) {
	p := NewPlayer(config.AIParams{Name: "test"}, rand.New(rand.NewSource(1)))

	p.Observe([]game.CardView{
		{ID: "a", ContentKey: "cat", State: "revealed"},
		{ID: "b", State: "hidden"},
	})
	assert.Equal(t, map[string]string{"a": "cat"}, p.memory)

	p.Observe([]game.CardView{
		{ID: "a", ContentKey: "cat", State: "matched"},
	})
	assert.Empty(t, p.memory, "matched cards are dropped from memory")
}

func TestObserveForgets(t *testing.T) {
	p := NewPlayer(config.AIParams{ForgetChance: 100}, rand.New(rand.NewSource(1)))

	p.Observe([]game.CardView{{ID: "a", ContentKey: "cat", State: "revealed"}})
	assert.Empty(t, p.memory)
}

func TestNextMoveUsesKnownPair(t *testing.T) {
	p := NewPlayer(config.AIParams{UseKnownPairChance: 100}, rand.New(rand.NewSource(1)))
	p.memory = map[string]string{"b": "dog", "d": "dog", "c": "cat"}

	state := &game.GameStateMsg{
		Phase: "idle",
		Cards: []game.CardView{
			{ID: "a", State: "hidden"},
			{ID: "b", State: "hidden"},
			{ID: "c", State: "hidden"},
			{ID: "d", State: "hidden"},
		},
	}
	id, reason := p.NextMove(state)
	assert.Equal(t, "b", id)
	assert.Equal(t, flipReasonKnownPair, reason)

	state.Phase = "one_revealed"
	state.PendingIDs = []string{"b"}
	state.Cards[1] = game.CardView{ID: "b", ContentKey: "dog", State: "revealed"}
	id, reason = p.NextMove(state)
	assert.Equal(t, "d", id)
	assert.Equal(t, flipReasonKnownPair, reason)
}

func TestNextMoveWaitsDuringMismatch(t *testing.T) {
	p := NewPlayer(config.AIParams{}, rand.New(rand.NewSource(1)))
	state := &game.GameStateMsg{
		Phase: "mismatch_pending",
		Cards: []game.CardView{{ID: "a", State: "hidden"}, {ID: "b", State: "hidden"}},
	}
	id, _ := p.NextMove(state)
	assert.Empty(t, id)
}

func TestPlayPerfectMemory(t *testing.T) {
	e, fake := newEngine(t, 3)
	_, err := e.StartNewGame(4, pool(42))
	require.NoError(t, err)

	p := NewPlayer(config.AIParams{Name: "Mnemosyne", UseKnownPairChance: 100}, rand.New(rand.NewSource(4)))
	st, err := p.Play(e, time.Second, fake.Advance)
	require.NoError(t, err)

	assert.Equal(t, 8, st.MatchedPairs)
	assert.GreaterOrEqual(t, st.TotalMoves, 8)
	// A perfect-memory player never needs more moves than cards on the board.
	assert.LessOrEqual(t, st.TotalMoves, 16)
	assert.Equal(t, game.Accuracy(8, st.TotalMoves), st.AccuracyPercent)
	assert.True(t, e.State().Completed())
}

func TestPlayGoldfishStillFinishes(t *testing.T) {
	e, fake := newEngine(t, 9)
	_, err := e.StartNewGame(2, pool(42))
	require.NoError(t, err)

	p := NewPlayer(config.AIParams{Name: "Goldfish", ForgetChance: 100, DelayMinMS: 300, DelayMaxMS: 600}, rand.New(rand.NewSource(9)))
	st, err := p.Play(e, time.Second, fake.Advance)
	require.NoError(t, err)
	assert.Equal(t, 2, st.MatchedPairs)
	assert.Positive(t, st.TotalTimeSeconds+st.TotalMoves)
}

func TestPlayGoldfishLargestGrid(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		e, fake := newEngine(t, seed)
		_, err := e.StartNewGame(8, pool(42))
		require.NoError(t, err)

		p := NewPlayer(config.AIParams{Name: "Goldfish", ForgetChance: 100}, rand.New(rand.NewSource(seed)))
		st, err := p.Play(e, time.Second, fake.Advance)
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, 32, st.MatchedPairs, "seed %d", seed)
	}
}

// silentScheduler never runs its callbacks, so a mismatch is never reverted.
type silentScheduler struct{}

type silentTimer struct{}

func (silentTimer) Stop() bool { return true }

func (silentScheduler) AfterFunc(time.Duration, func()) clock.Timer { return silentTimer{} }

func TestPlayStopsWhenBoardIsFrozen(t *testing.T) {
	fake := clock.NewFake(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	e := game.NewEngine(&config.Config{MaxGridSize: 8, RevealDurationMS: 1000},
		game.WithClock(fake),
		game.WithScheduler(silentScheduler{}),
		game.WithRand(rand.New(rand.NewSource(2))),
	)
	t.Cleanup(e.Close)
	s, err := e.StartNewGame(4, pool(42))
	require.NoError(t, err)

	first := s.Cards[0]
	for _, c := range s.Cards[1:] {
		if c.ContentKey != first.ContentKey {
			e.RevealCard(first.ID)
			e.RevealCard(c.ID)
			break
		}
	}
	st := e.State()
	require.Equal(t, game.MismatchPending, st.Phase())

	p := NewPlayer(config.AIParams{}, rand.New(rand.NewSource(1)))
	_, err = p.Play(e, time.Second, fake.Advance)
	assert.ErrorIs(t, err, ErrStuck)
}

func TestPlayWithoutGame(t *testing.T) {
	e, fake := newEngine(t, 1)
	p := NewPlayer(config.AIParams{}, rand.New(rand.NewSource(1)))

	_, err := p.Play(e, time.Second, fake.Advance)
	assert.ErrorIs(t, err, matcherrors.ErrNoGameInProgress)
}

func TestThinkTime(t *testing.T) {
	p := NewPlayer(config.AIParams{DelayMinMS: 100, DelayMaxMS: 200}, rand.New(rand.NewSource(1)))
	for i := 0; i < 50; i++ {
		d := p.thinkTime()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 200*time.Millisecond)
	}
}
