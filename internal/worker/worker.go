// Package worker holds the background loops run by cmd/worker: the event
// audit consumer and the archive retention purge.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/attendance"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/metrics"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/queue"
)

// Auditor drains the event queue and writes one structured log line per
// lifecycle event.
type Auditor struct {
	Queue   queue.Queue
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

// Run consumes until ctx is cancelled or the queue closes.
func (a Auditor) Run(ctx context.Context) error {
	messages, err := a.Queue.Consume(ctx)
	if err != nil {
		return err
	}
	a.logger().Info("auditor started")
	for msg := range messages {
		a.handle(ctx, msg)
	}
	a.logger().Info("auditor stopped")
	return nil
}

func (a Auditor) handle(ctx context.Context, msg queue.Message) {
	var body map[string]any
	if err := msg.Decode(&body); err != nil {
		a.logger().WarnContext(ctx, "undecodable event", "id", msg.ID, "type", msg.Type, "err", err)
		body = map[string]any{"raw": json.RawMessage(msg.Body)}
	}
	a.logger().InfoContext(ctx, "event",
		"id", msg.ID,
		"type", msg.Type,
		"at", msg.At,
		"body", body,
	)
	a.Metrics.ObserveEvent(msg.Type)
}

func (a Auditor) logger() *slog.Logger {
	if a.Log == nil {
		return slog.Default()
	}
	return a.Log
}

// Purger removes archive entries older than Retention every Interval.
type Purger struct {
	Service   *attendance.Service
	Retention time.Duration
	Interval  time.Duration
	Log       *slog.Logger
	Metrics   *metrics.Metrics
}

// Run purges once immediately, then on every tick until ctx is cancelled.
func (p Purger) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		if _, err := p.Once(ctx); err != nil && ctx.Err() == nil {
			p.logger().WarnContext(ctx, "archive purge failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Once runs a single purge pass and returns how many entries it removed.
func (p Purger) Once(ctx context.Context) (int, error) {
	purged, err := p.Service.PurgeExpired(ctx, p.Retention)
	if err != nil {
		return 0, err
	}
	if len(purged) > 0 {
		ids := make([]int, len(purged))
		for i, e := range purged {
			ids[i] = e.User.ID
		}
		p.logger().InfoContext(ctx, "archive purged", "count", len(purged), "user_ids", ids)
	}
	p.Metrics.ObservePurged(len(purged))
	return len(purged), nil
}

func (p Purger) logger() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}
