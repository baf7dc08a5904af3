package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deusflow/trendpulse/internal/app"
	"github.com/deusflow/trendpulse/internal/config"
	"github.com/deusflow/trendpulse/internal/logger"
	"github.com/deusflow/trendpulse/internal/metrics"
	"github.com/deusflow/trendpulse/internal/scheduler"
)

func main() {
	mode := flag.String("mode", "serve", "run mode: once | autonomous | serve")
	flag.Parse()

	// Load first so DEBUG and LOG_LEVEL from .env reach the logger.
	cfg, err := config.Load()
	logger.Init()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	switch *mode {
	case "once":
		res, err := a.RunOnce(ctx)
		if err != nil {
			logger.Error("cycle failed", "error", err)
			os.Exit(1)
		}
		logger.Info("cycle finished", "outcome", res.Outcome, "topic", res.Topic, "id", res.DocumentID)
	case "autonomous":
		results, err := a.RunAutonomous(ctx)
		if err != nil {
			logger.Error("autonomous cycle failed", "error", err)
			os.Exit(1)
		}
		for _, r := range results {
			logger.Info("topic finished", "outcome", r.Outcome, "topic", r.Topic, "id", r.DocumentID)
		}
	case "serve":
		if err := serve(ctx, a, cfg); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}
}

// serve runs autonomous cycles on the configured interval and the HTTP
// monitoring surface until ctx is cancelled.
func serve(ctx context.Context, a *app.App, cfg *config.Config) error {
	a.Background(ctx)

	sched := scheduler.New(cfg.CycleInterval)
	err := sched.Start(ctx, func(ctx context.Context, _ time.Time) {
		if _, err := a.RunAutonomous(ctx); err != nil && !errors.Is(err, app.ErrBusy) {
			logger.Error("scheduled cycle failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewServer(a, metrics.Global).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting monitoring server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
