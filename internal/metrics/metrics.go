// Package metrics provides Prometheus metrics for pushkit.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pushkit"
)

// Telemetry metrics
var (
	// SamplesTotal counts stream samples applied per feed.
	SamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "samples_total",
			Help:      "Total stream samples appended to feed buffers",
		},
		[]string{"feed"},
	)

	// StreamReconnectsTotal counts stream reconnect attempts per feed.
	StreamReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "stream_reconnects_total",
			Help:      "Total stream reconnect attempts",
		},
		[]string{"feed"},
	)

	// StaleResponsesTotal counts poll responses discarded for arriving
	// after a newer one was applied.
	StaleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "stale_responses_total",
			Help:      "Poll responses discarded by the sequence guard",
		},
		[]string{"poll"},
	)

	// BufferSize tracks the current length of each feed buffer.
	BufferSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "buffer_size",
			Help:      "Current number of samples in each feed buffer",
		},
		[]string{"feed"},
	)

	// PresenceOnline reports the operator presence indicator (0 or 1).
	PresenceOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "presence_online",
			Help:      "Operator presence indicator",
		},
	)
)

// Workflow metrics
var (
	// LaunchesTotal counts workflow launches by outcome.
	LaunchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "launches_total",
			Help:      "Total workflow launches by outcome",
		},
		[]string{"outcome"},
	)
)

// Dashboard HTTP metrics
var (
	// HTTPRequestsTotal counts dashboard HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total dashboard HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
