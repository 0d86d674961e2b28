package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"doclife/internal/config"
	"doclife/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(config.Load())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "docctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.AppConfig) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "docctl",
		Short: "doclife operator CLI",
		Long: `docctl runs the retention sweep and artifact janitor on demand, applies or
rolls back schema migrations, and mints principal tokens for local testing.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")
	cmd.AddCommand(
		newSweepCmd(cfg),
		newJanitorCmd(cfg),
		newMigrateCmd(cfg),
		newTokenCmd(cfg),
	)
	return cmd
}

// logger writes to stderr so command output on stdout stays machine-readable.
func logger(cfg *config.AppConfig) *slog.Logger {
	return logging.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.Location())
}
