package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SandboxAccessTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sandbox_access_tokens_issued_total",
			Help: "Total number of access tokens issued by the sandbox API",
		},
	)

	SandboxRefreshTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sandbox_refresh_tokens_issued_total",
			Help: "Total number of refresh tokens issued by the sandbox API",
		},
	)

	SandboxRefreshTokensUsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sandbox_refresh_tokens_used_total",
			Help: "Total number of refresh tokens exchanged",
		},
	)

	SandboxRefreshTokensRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_refresh_tokens_rejected_total",
			Help: "Total number of rejected refresh tokens by reason",
		},
		[]string{"reason"},
	)

	SandboxRefreshTokensCleanupDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sandbox_refresh_tokens_cleanup_deleted_total",
			Help: "Total number of expired refresh tokens removed by the cleanup loop",
		},
	)

	SandboxJWTValidationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_jwt_validations_failed_total",
			Help: "Total number of failed access token validations by reason",
		},
		[]string{"reason"},
	)
)
