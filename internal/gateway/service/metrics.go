package service

import (
	"context"
	"errors"
	"time"

	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

func recordOutcome(err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRetryExhausted):
		outcome = "retry_exhausted"
	case errors.Is(err, domain.ErrAuthUnrecoverable):
		outcome = "auth_unrecoverable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
	default:
		outcome = "error"
	}
	metrics.GatewayRequestsTotal.WithLabelValues(outcome).Inc()
}

func recordAuthFailure() {
	metrics.GatewayAuthFailuresTotal.Inc()
}

func recordRefresh(outcome string) {
	metrics.GatewayRefreshTotal.WithLabelValues(outcome).Inc()
}

func observeRefreshDuration(d time.Duration) {
	metrics.GatewayRefreshDurationSeconds.Observe(d.Seconds())
}

func recordReplay(outcome string) {
	metrics.GatewayReplaysTotal.WithLabelValues(outcome).Inc()
}

func recordLogoutSignal() {
	metrics.GatewayLogoutSignalsTotal.Inc()
}
