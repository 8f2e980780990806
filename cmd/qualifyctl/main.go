// Package main provides qualifyctl, the operator CLI. It talks to the same
// backends as the server using the server's environment configuration.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"qualify/internal/app"
	"qualify/internal/platform/config"
	"qualify/internal/platform/logger"
)

var (
	version = "dev"

	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qualifyctl",
		Short: "Operator CLI for the qualify training tracker",
		Long: `qualifyctl runs maintenance tasks against the qualify backends.

It reads the same QUALIFY_* environment as the server, so sweeps,
certificate regeneration and user provisioning act on the live data.`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newCertificatesCmd())
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newTokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger.NewWithWriter(os.Stderr, logLevel), nil
}

// withApp builds the service graph against Postgres and runs fn. Commands
// that change data refuse to run on throwaway in-memory stores.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("QUALIFY_DATABASE_URL is required")
	}
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
