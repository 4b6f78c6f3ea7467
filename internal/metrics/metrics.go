package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// Metrics groups the collectors exported on /metrics.
type Metrics struct {
	Operations      *prometheus.CounterVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Events          *prometheus.CounterVec
	ArchivePurged   prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "operations_total",
			Help:      "Lifecycle operations by name and outcome.",
		}, []string{"op", "outcome"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "attendance",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "events_consumed_total",
			Help:      "Lifecycle events processed by the worker.",
		}, []string{"type"}),
		ArchivePurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "archive_purged_total",
			Help:      "Archive entries removed by retention.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Requests, m.RequestDuration, m.Events, m.ArchivePurged)
	}
	return m
}

// ObserveOp counts one lifecycle operation. Safe on a nil receiver.
func (m *Metrics) ObserveOp(op string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, Outcome(err)).Inc()
}

// ObserveRequest records one HTTP request. Safe on a nil receiver.
func (m *Metrics) ObserveRequest(route, method, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, status).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(took.Seconds())
}

// ObserveEvent counts one consumed event. Safe on a nil receiver.
func (m *Metrics) ObserveEvent(typ string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(typ).Inc()
}

// ObservePurged adds n retention purges. Safe on a nil receiver.
func (m *Metrics) ObservePurged(n int) {
	if m == nil {
		return
	}
	m.ArchivePurged.Add(float64(n))
}

// Outcome names the class of err for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDuplicateEmail), errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
