package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"memory-match-server/api"
	"memory-match-server/auth"
	"memory-match-server/config"
	"memory-match-server/content"
	"memory-match-server/storage"
	"memory-match-server/telemetry"
	"memory-match-server/ws"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket game server",
		Long: `Run the game server. Each WebSocket connection plays its own game.

Telemetry is persisted when DATABASE_URL is set (postgres:// or sqlite://).
Players can attribute their games by sending an auth message when
AUTH_BASE_URL points at a JWKS issuer.

Example:
  memory-match serve --port 9000
  DATABASE_URL=sqlite://match.db memory-match serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "listen port, overrides WS_PORT")

	return cmd
}

func runServer(ctx context.Context, opts *ServeOptions) error {
	cfg := opts.Config
	if opts.Port > 0 {
		cfg.WSPort = opts.Port
	}
	logConfig(cfg)

	pool, err := content.Load(cfg.ContentPoolPath)
	if err != nil {
		return fmt.Errorf("load content pool: %w", err)
	}
	if poolMax := pool.MaxGridSize(); poolMax < cfg.MaxGridSize {
		slog.Warn("content pool is smaller than the largest grid, large decks will be clamped",
			"tag", "main", "pool", pool.Name, "items", len(pool.Items), "max_grid_size", cfg.MaxGridSize, "pool_max_grid_size", poolMax)
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open telemetry store: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	sink := telemetry.Multi{telemetry.SlogSink{}}
	sinkCtx, stopSink := context.WithCancel(context.Background())
	sinkDone := make(chan struct{})
	if store != nil {
		storeSink := telemetry.NewStoreSink(store, 0)
		sink = append(sink, storeSink)
		go func() {
			defer close(sinkDone)
			storeSink.Run(sinkCtx)
		}()
	} else {
		close(sinkDone)
	}

	var validator ws.TokenValidator
	if cfg.AuthBaseURL == "" {
		slog.Info("auth not configured, players stay anonymous", "tag", "main")
	} else {
		v, err := auth.NewValidator(ctx, cfg.AuthBaseURL)
		if err != nil {
			slog.Error("auth disabled", "tag", "main", "err", err)
		} else {
			validator = v
			slog.Info("auth configured", "tag", "main", "base_url", cfg.AuthBaseURL)
		}
	}

	hub := ws.NewHub(cfg, pool, sink)
	hub.Auth = validator
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WSPort),
		Handler:           api.NewRouter(api.NewHandler(cfg, store, hub, validator)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("memory match server listening", "tag", "main", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		stopHub()
		stopSink()
		<-sinkDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "tag", "main")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "tag", "main", "err", err)
	}
	// Closing the clients ends their games before the last events are flushed.
	stopHub()
	stopSink()
	<-sinkDone
	return nil
}

func logConfig(cfg *config.Config) {
	slog.Info("configuration",
		"tag", "main",
		"grid_size", cfg.GridSize,
		"max_grid_size", cfg.MaxGridSize,
		"reveal_duration_ms", cfg.RevealDurationMS,
		"ws_port", cfg.WSPort,
		"max_clicks_per_second", cfg.MaxClicksPerSecond,
		"telemetry", cfg.DatabaseURL != "",
	)
}
