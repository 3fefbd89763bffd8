// Package cli wires the memory-match server and its offline tools into a
// cobra command tree.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"memory-match-server/config"
	"memory-match-server/loghandler"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	// Config is loaded in PersistentPreRunE and shared with subcommands.
	Config *config.Config
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "memory-match",
		Short: "Memory tile-matching game server",
		Long: `Serve single-player memory matching games over WebSocket, or play
them offline with simulated autoplayers.

Configuration is read from a JSON file, then from the environment. A .env
file in the working directory is loaded first when present.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "config.json", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides LOG_LEVEL")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd
}

func (o *RootOptions) load() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	o.Config = config.LoadFrom(o.ConfigPath)
	if o.LogLevel != "" {
		o.Config.LogLevel = o.LogLevel
	}
	loghandler.Setup(os.Stderr, o.Config.LogLevel)
	return nil
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
