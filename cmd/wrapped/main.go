// Command wrapped runs the Spotify Wrapped web service and its admin tasks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-wrapped/internal/config"
	"github.com/justestif/go-spotify-wrapped/internal/db"
	"github.com/justestif/go-spotify-wrapped/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wrapped",
		Short:         "Spotify listening summaries for you and your friends",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			config.LoadDotEnv()
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newStaffCmd())
	return root
}

// environment bundles what every subcommand needs.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *db.DB
}

// setup loads configuration, builds the logger and connects to the database.
func setup(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)

	database, err := db.Open(ctx, cfg.DatabaseURL, db.WithDeletionObserver(db.LogDeletions(logger)))
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &environment{cfg: cfg, logger: logger, db: database}, nil
}
