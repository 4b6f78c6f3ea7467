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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/app"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/config"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/metrics"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/worker"
)

// Worker consumes lifecycle events into the audit log and purges expired
// archive entries.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a, err := app.New(ctx, cfg, log, m)
	if err != nil {
		log.Error("worker init failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Auditor{Queue: a.Queue, Log: log, Metrics: m}.Run(ctx)
	})
	g.Go(func() error {
		return worker.Purger{
			Service:   a.Service,
			Retention: cfg.ArchiveRetention,
			Interval:  cfg.PurgeInterval,
			Log:       log,
			Metrics:   m,
		}.Run(ctx)
	})
	if addr := cfg.WorkerMetricsAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	log.Info("worker started", "queue", cfg.QueueBackend, "retention", cfg.ArchiveRetention)
	if err := g.Wait(); err != nil {
		log.Error("worker stopped", "err", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
