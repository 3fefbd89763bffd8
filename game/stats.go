package game

import (
	"math"
	"time"
)

// Stats are derived from a GameState and never mutated on their own.
type Stats struct {
	TotalMoves       int
	TotalTimeSeconds int
	MatchedPairs     int
	AccuracyPercent  int
}

// Project derives Stats from s at time now.
//
// Elapsed time runs from StartedAt to CompletedAt, or to now while the game
// is in progress, and is 0 before a game starts.
//
// Accuracy is round(MatchedPairs*2/Moves*100). Moves counts attempts and
// MatchedPairs counts successes, so a flawless game scores 200 and the value
// only drops to 100 or below once half the attempts are misses.
func Project(s *GameState, now time.Time) Stats {
	st := Stats{
		TotalMoves:   s.Moves,
		MatchedPairs: s.MatchedPairs,
	}
	if s.Started() {
		end := now
		if s.Completed() {
			end = s.CompletedAt
		}
		if elapsed := end.Sub(s.StartedAt); elapsed > 0 {
			st.TotalTimeSeconds = int(elapsed / time.Second)
		}
	}
	st.AccuracyPercent = Accuracy(s.MatchedPairs, s.Moves)
	return st
}

// Accuracy returns round(matchedPairs*2/moves*100), or 0 when moves is 0.
func Accuracy(matchedPairs, moves int) int {
	if moves <= 0 {
		return 0
	}
	return int(math.Round(float64(matchedPairs*2) / float64(moves) * 100))
}
