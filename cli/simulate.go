package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"memory-match-server/ai"
	"memory-match-server/clock"
	"memory-match-server/config"
	"memory-match-server/content"
	"memory-match-server/game"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	GridSize int
	Games    int
	Seed     int64
	Profile  string
	JSON     bool
}

// SimulatedGame is the result of one autoplayed game.
type SimulatedGame struct {
	Game     int    `json:"game"`
	GameID   string `json:"gameId"`
	Moves    int    `json:"moves"`
	Seconds  int    `json:"seconds"`
	Pairs    int    `json:"pairs"`
	Accuracy int    `json:"accuracy"`
}

// SimulationReport aggregates a simulate run.
type SimulationReport struct {
	Profile     string          `json:"profile"`
	GridSize    int             `json:"gridSize"`
	Games       []SimulatedGame `json:"games"`
	AvgMoves    float64         `json:"avgMoves"`
	AvgSeconds  float64         `json:"avgSeconds"`
	AvgAccuracy float64         `json:"avgAccuracy"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play games offline with an autoplayer",
		Long: `Play games against a simulated clock with one of the configured
autoplayer profiles and print the resulting stats. Runs are reproducible
for a given seed.

Example:
  memory-match simulate --grid 6 --games 20 --profile Calliope
  memory-match simulate --seed 7 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := Simulate(opts.Config, opts)
			if err != nil {
				return err
			}
			if opts.JSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			writeReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.GridSize, "grid", 0, "grid size (0 uses the configured default)")
	cmd.Flags().IntVarP(&opts.Games, "games", "n", 10, "number of games to play")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "random seed")
	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "", "autoplayer profile (default: first configured)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the report as JSON")

	return cmd
}

// Simulate plays opts.Games games on the built-in or configured content pool.
func Simulate(cfg *config.Config, opts *SimulateOptions) (SimulationReport, error) {
	params, ok := cfg.Profile(opts.Profile)
	if !ok {
		names := lo.Map(cfg.AIProfiles, func(p config.AIParams, _ int) string { return p.Name })
		return SimulationReport{}, fmt.Errorf("unknown profile %q (available: %s)", opts.Profile, strings.Join(names, ", "))
	}
	if opts.Games <= 0 {
		return SimulationReport{}, fmt.Errorf("games must be positive, got %d", opts.Games)
	}
	gridSize := opts.GridSize
	if gridSize == 0 {
		gridSize = cfg.GridSize
	}
	pool, err := content.Load(cfg.ContentPoolPath)
	if err != nil {
		return SimulationReport{}, fmt.Errorf("load content pool: %w", err)
	}

	report := SimulationReport{Profile: params.Name, GridSize: gridSize}
	revealWait := time.Duration(cfg.RevealDurationMS) * time.Millisecond
	player := ai.NewPlayer(params, rand.New(rand.NewSource(opts.Seed)))

	for i := 0; i < opts.Games; i++ {
		fake := clock.NewFake(time.Unix(0, 0).UTC())
		e := game.NewEngine(cfg,
			game.WithClock(fake),
			game.WithScheduler(fake),
			game.WithRand(rand.New(rand.NewSource(opts.Seed+int64(i)))),
		)
		s, err := e.StartNewGame(gridSize, pool.Items)
		if err != nil {
			e.Close()
			return SimulationReport{}, err
		}
		player.Reset()
		st, err := player.Play(e, revealWait, fake.Advance)
		e.Close()
		if err != nil {
			return SimulationReport{}, fmt.Errorf("game %d: %w", i+1, err)
		}
		report.Games = append(report.Games, SimulatedGame{
			Game:     i + 1,
			GameID:   s.GameID,
			Moves:    st.TotalMoves,
			Seconds:  st.TotalTimeSeconds,
			Pairs:    st.MatchedPairs,
			Accuracy: st.AccuracyPercent,
		})
	}

	n := float64(len(report.Games))
	report.AvgMoves = float64(lo.SumBy(report.Games, func(g SimulatedGame) int { return g.Moves })) / n
	report.AvgSeconds = float64(lo.SumBy(report.Games, func(g SimulatedGame) int { return g.Seconds })) / n
	report.AvgAccuracy = float64(lo.SumBy(report.Games, func(g SimulatedGame) int { return g.Accuracy })) / n
	return report, nil
}

func writeReport(w io.Writer, r SimulationReport) {
	fmt.Fprintf(w, "profile %s, grid %d\n", r.Profile, r.GridSize)
	for _, g := range r.Games {
		fmt.Fprintf(w, "  game %3d: %2d pairs in %3d moves, %4ds, accuracy %d%%\n", g.Game, g.Pairs, g.Moves, g.Seconds, g.Accuracy)
	}
	fmt.Fprintf(w, "average: %.1f moves, %.1fs, accuracy %.1f%%\n", r.AvgMoves, r.AvgSeconds, r.AvgAccuracy)
}
