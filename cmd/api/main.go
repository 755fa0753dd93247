package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/vendo-app/vendo-api/pkg/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return runExpirySweep(gCtx, deps)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runExpirySweep periodically expires lapsed subscriptions and logs the ones
// about to lapse. The sweep tolerates per-record failures; a broken record
// never stalls the ticker.
func runExpirySweep(ctx context.Context, deps *Dependencies) error {
	interval := deps.Config.Subscriptions.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deps.Logger.Info("expiry sweep scheduled", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			deps.Logger.Info("expiry sweep stopped")
			return nil
		case <-ticker.C:
			processed, err := deps.SubscriptionService.ProcessExpired(ctx)
			if err != nil {
				deps.Logger.Error("expiry sweep failed", "error", err)
				continue
			}
			if processed > 0 {
				deps.Logger.Info("expiry sweep completed", "processed", processed)
			}

			if _, err := deps.SubscriptionService.NotifyExpiringSoon(ctx); err != nil {
				deps.Logger.Error("expiring-soon notification failed", "error", err)
			}
		}
	}
}
