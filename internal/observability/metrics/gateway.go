package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of logical requests sent through the gateway by outcome",
		},
		[]string{"outcome"},
	)

	GatewayAuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_auth_failures_total",
			Help: "Total number of upstream responses classified as expired credentials",
		},
	)

	GatewayRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_refresh_total",
			Help: "Total number of credential refresh calls by outcome",
		},
		[]string{"outcome"},
	)

	GatewayRefreshDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_refresh_duration_seconds",
			Help:    "Duration of credential refresh calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	GatewayPendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_pending_requests",
			Help: "Number of requests waiting behind an in-flight refresh",
		},
	)

	GatewayReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_replays_total",
			Help: "Total number of replayed requests by outcome",
		},
		[]string{"outcome"},
	)

	GatewayLogoutSignalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_logout_signals_total",
			Help: "Total number of logout signals fired after unrecoverable session loss",
		},
	)
)
