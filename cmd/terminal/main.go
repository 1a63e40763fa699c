package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/app"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/config"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/logging"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "terminal",
	Short:         "Games-industry news terminal",
	Long:          "Ingests industry feeds, tags items, clusters them into stories and ranks stories by importance.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger = logging.New(cfg.Logging.Level, cmd.ErrOrStderr())
	},
}

// withApp builds the application for one command and tears it down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
