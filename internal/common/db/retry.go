package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     2 * time.Second,
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or
// cfg.MaxAttempts is spent. Delays grow exponentially with jitter.
func Retry(ctx context.Context, log *logger.Logger, cfg RetryConfig, operation string, fn func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialDelay
	policy.MaxInterval = cfg.MaxDelay
	policy.MaxElapsedTime = 0
	policy.Reset()

	var retries uint64
	if cfg.MaxAttempts > 1 {
		retries = uint64(cfg.MaxAttempts - 1)
	}

	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			err := fn(ctx)
			if err != nil && !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx),
		func(err error, next time.Duration) {
			metrics.PostgresRetries.WithLabelValues(operation, sqlState(err)).Inc()
			log.WithFields(ctx, logger.Fields{
				"operation": operation,
				"attempt":   attempt,
			}).Warnf("postgres %s failed, retrying in %v: %v", operation, next, err)
		},
	)
	if err == nil && attempt > 1 {
		log.WithFields(ctx, logger.Fields{
			"operation": operation,
			"attempt":   attempt,
		}).Info("postgres operation recovered")
	}
	return err
}
