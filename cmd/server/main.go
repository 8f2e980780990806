package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"qualify/internal/app"
	"qualify/internal/governance"
	"qualify/internal/platform/config"
	"qualify/internal/platform/httpserver"
	"qualify/internal/platform/logger"
)

// main wires the service graph, then runs the HTTP server, the sweep
// scheduler, the audit replay loop and the outbox relay until a signal
// arrives. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close backends", "error", err)
		}
	}()

	if _, err := a.Governance.Bootstrap(ctx, governance.DefaultSettings()); err != nil {
		return err
	}

	relay, closeRelay, err := a.AuditRelay(ctx)
	switch {
	case app.RelayDisabled(err):
		log.InfoContext(ctx, "audit relay disabled")
	case err != nil:
		return err
	default:
		defer closeRelay()
	}

	g, ctx := errgroup.WithContext(ctx)

	srv := httpserver.New(cfg.Server.Addr, a.Router())
	g.Go(func() error {
		log.InfoContext(ctx, "starting qualify", "addr", cfg.Server.Addr)
		return httpserver.Serve(ctx, srv, cfg.Server.ShutdownTimeout)
	})

	g.Go(func() error {
		return ignoreCancel(a.Runner.Run(ctx))
	})

	g.Go(func() error {
		return ignoreCancel(a.Trail.RunRetry(ctx))
	})

	if relay != nil {
		g.Go(func() error {
			return ignoreCancel(relay.Run(ctx))
		})
	}

	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
