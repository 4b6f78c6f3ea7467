// Package app wires configuration to concrete backends.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/attendance"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/config"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/metrics"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/queue"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store/mongostore"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store/sqlstore"
)

// App is the set of long-lived dependencies shared by the binaries.
type App struct {
	Config  config.App
	Log     *slog.Logger
	Store   store.Store
	Queue   queue.Queue
	Redis   *store.Redis
	Metrics *metrics.Metrics
	Service *attendance.Service

	closers []io.Closer
}

// NewLogger builds the process logger from LOG_FORMAT and LOG_LEVEL.
func NewLogger(cfg config.App, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// New opens the configured store and queue and builds the service.
func New(ctx context.Context, cfg config.App, log *slog.Logger, m *metrics.Metrics) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: m}

	if cfg.QueueBackend == "redis" || cfg.RateLimitBackend == "redis" {
		a.Redis = store.NewRedis(cfg.RedisAddr)
		a.closers = append(a.closers, a.Redis)
	}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = st
	a.closers = append(a.closers, st)

	q, closer, err := OpenQueue(cfg, a.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Queue = q
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.Service = attendance.NewService(st, attendance.Options{
		BackfillStart:     cfg.BackfillStart,
		BackfillEnd:       cfg.BackfillEnd,
		ProtectAdminUsers: cfg.ProtectAdminUsers,
		ProtectLastAdmin:  cfg.ProtectLastAdmin,
		Events:            q,
		Metrics:           m,
		Logger:            log,
	})
	log.Info("backends ready", "store", cfg.StoreBackend, "queue", cfg.QueueBackend)
	return a, nil
}

// OpenStore connects the backend named by STORE_BACKEND.
func OpenStore(ctx context.Context, cfg config.App) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemory(), nil
	case "postgres":
		return sqlstore.Open(ctx, sqlstore.Postgres, cfg.DatabaseURL)
	case "sqlite":
		return sqlstore.Open(ctx, sqlstore.SQLite, cfg.SQLitePath)
	case "mongo":
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// OpenQueue builds the event queue named by QUEUE_BACKEND. The returned
// closer is nil when the queue holds no connection of its own.
func OpenQueue(cfg config.App, rdb *store.Redis) (queue.Queue, io.Closer, error) {
	switch cfg.QueueBackend {
	case "memory":
		return queue.NewInMemory(256), nil, nil
	case "none":
		return queue.Discard{}, nil, nil
	case "redis":
		if rdb == nil {
			return nil, nil, fmt.Errorf("redis queue requires REDIS_ADDR")
		}
		return queue.NewRedisQueue(rdb.Client, queue.DefaultRedisKey), nil, nil
	case "amqp":
		q, err := queue.DialAMQP(cfg.AMQPURL, queue.DefaultExchange, "")
		if err != nil {
			return nil, nil, err
		}
		return q, q, nil
	}
	return nil, nil, fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
}

// Close releases every backend in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.Log != nil {
			a.Log.Warn("close backend", "err", err)
		}
	}
	a.closers = nil
}
