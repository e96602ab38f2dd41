// Package metrics pkg/metrics/metrics.go exposes the prometheus
// instrumentation shared across pumpwatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRunsTotal counts completed pipeline invocations by outcome.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpwatch_pipeline_runs_total",
			Help: "Total number of anomaly pipeline invocations",
		},
		[]string{"status"},
	)

	// PipelineDurationSeconds observes the wall time of one full batch pass.
	PipelineDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pumpwatch_pipeline_duration_seconds",
			Help:    "Anomaly pipeline duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// AnomaliesDetectedTotal counts emitted anomaly records per pump.
	AnomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpwatch_anomalies_detected_total",
			Help: "Total number of anomaly records emitted",
		},
		[]string{"pump_id"},
	)

	// HTTPRequestsTotal counts API requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pumpwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
)
