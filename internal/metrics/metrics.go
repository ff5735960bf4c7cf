// Package metrics exposes the Prometheus instruments for the execution
// pipeline, served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentbox_executions_total",
			Help: "Total number of code executions by language and result kind",
		},
		[]string{"language", "result"},
	)

	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentbox_execution_duration_seconds",
			Help:    "Wall-clock execution duration, container lifecycle included",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"language"},
	)

	ExecutionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentbox_executions_in_flight",
			Help: "Number of executions currently holding a sandbox slot",
		},
	)

	SlotWaiters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentbox_slot_waiters",
			Help: "Number of requests waiting for a free sandbox slot",
		},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentbox_rate_limit_rejections_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
)
