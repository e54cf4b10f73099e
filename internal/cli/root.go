// Package cli implements the stridelake command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stridelake/stridelake/internal/app"
	"github.com/stridelake/stridelake/internal/config"
	"github.com/stridelake/stridelake/pkg/logger"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

func Run() ExitCode {
	if err := NewRootCmd().Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stridelake",
		Short:         "Ask questions about your Strava running data.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "set debug logging level")
	rootCmd.PersistentFlags().String("env-file", ".env", "path to a .env file loaded before reading the environment")

	rootCmd.AddCommand(
		NewAskCmd().Command(),
		NewMigrateCmd().Command(),
		NewSyncCmd().Command(),
		NewSchemaCmd().Command(),
	)
	return rootCmd
}

// session holds what every subcommand needs once flags are parsed.
type session struct {
	log    *slog.Logger
	app    *app.App
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *session) Close() {
	s.app.Close()
	s.cancel()
}

func newSession(cmd *cobra.Command) (*session, error) {
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	envFile, err := cmd.Root().PersistentFlags().GetString("env-file")
	if err != nil {
		return nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}

	// Logs go to stderr so answers and tables can be piped.
	log := logger.NewWithWriter(os.Stderr, verbose)

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	return &session{log: log, app: a, ctx: ctx, cancel: cancel}, nil
}
