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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/app"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/config"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/metrics"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(log)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Error("http server failed", "err", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	a, err := app.New(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.SeedDefaults {
		created, err := a.Service.SeedDefaults(ctx)
		if err != nil {
			return err
		}
		if len(created) > 0 {
			log.Info("seeded default users", "count", len(created))
		}
	}

	// An in-process queue or store is invisible to cmd/worker, so its loops
	// run here instead.
	if cfg.QueueBackend == "memory" {
		go func() {
			_ = worker.Auditor{Queue: a.Queue, Log: log, Metrics: m}.Run(ctx)
		}()
	}
	if cfg.StoreBackend == "memory" || cfg.StoreBackend == "sqlite" {
		go func() {
			_ = worker.Purger{
				Service:   a.Service,
				Retention: cfg.ArchiveRetention,
				Interval:  cfg.PurgeInterval,
				Log:       log,
				Metrics:   m,
			}.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      a.NewRouter(prometheus.DefaultGatherer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "err", err)
	}
	log.Info("server exited")
	return nil
}
