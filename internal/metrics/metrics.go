package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheretl_provider_calls_total",
			Help: "Total weather provider API calls",
		},
		[]string{"status"},
	)

	ProviderLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weatheretl_provider_latency_seconds",
			Help:    "Weather provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	InvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheretl_invocations_total",
			Help: "Total stage invocations by result status code",
		},
		[]string{"stage", "code"},
	)

	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheretl_records_processed_total",
			Help: "Stream records handled by the ingester, by outcome and skip reason",
		},
		[]string{"outcome", "reason"},
	)

	RowsExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatheretl_rows_exported_total",
			Help: "Total rows written to export files",
		},
	)

	InvocationRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheretl_invocation_retries_total",
			Help: "Retries of failed invocations by the local scheduler",
		},
		[]string{"stage"},
	)
)
