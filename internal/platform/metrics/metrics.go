// Package metrics declares the Prometheus collectors shared by the api gateway
// and the ledger projector. Collectors register with the default registry on
// package load and are served by promhttp on the configured metrics path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "noblepay_ledger"

// Outcome labels for movements
const (
	OutcomeCompleted = "completed"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by the throttle, by limiter",
		},
		[]string{"limiter"},
	)

	Movements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_total",
			Help:      "Money movements by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	MovementFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movement_failures_total",
			Help:      "Rejected or failed movements by operation and reason",
		},
		[]string{"operation", "reason"},
	)

	MovementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "movement_duration_seconds",
			Help:      "Time from request to commit per operation",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ReferenceCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_collisions_total",
			Help:      "Atomic units rerun because a generated reference already existed",
		},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_messages_total",
			Help:      "Outbox messages handled by the relay, by status",
		},
		[]string{"status"},
	)

	OutboxBacklog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Outbox messages still waiting to be published",
		},
	)

	EntriesProjected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_projected_total",
			Help:      "Entry events applied to the read model, by outcome",
		},
		[]string{"outcome"},
	)

	DLQPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dlq_total",
			Help:      "Entry events sent to the dead letter topic, by reason",
		},
		[]string{"reason"},
	)

	InflightProjections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_projections",
			Help:      "Entry events currently held by the projection worker pool",
		},
	)
)
