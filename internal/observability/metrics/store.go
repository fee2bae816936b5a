package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CredentialStoreOperationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credential_store_operation_duration_seconds",
			Help:    "Duration of credential store operations by backend",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend", "operation"},
	)

	CredentialStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_store_errors_total",
			Help: "Credential store operations that returned an error",
		},
		[]string{"backend", "operation"},
	)

	CredentialStoreSwaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_store_swaps_total",
			Help: "Compare-and-swap outcomes (swapped, stale)",
		},
		[]string{"backend", "result"},
	)

	PostgresRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postgres_retries_total",
			Help: "Postgres statements retried after a transient error",
		},
		[]string{"operation", "sqlstate"},
	)

	PostgresPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "postgres_pool_connections",
			Help: "Postgres pool connections by state (acquired, idle, total, max)",
		},
		[]string{"state"},
	)
)
