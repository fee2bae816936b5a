// Package cleanup evicts expired sandbox refresh tokens in the background.
package cleanup

import (
	"context"
	"time"

	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StartCleanup sweeps repo every interval and returns once ctx is done. A
// failed sweep is logged and retried on the next tick.
func StartCleanup(ctx context.Context, repo ExpiredDeleter, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweep(ctx, repo, log); err != nil && ctx.Err() != nil {
				return
			}
		}
	}
}

func sweep(ctx context.Context, repo ExpiredDeleter, log *logger.Logger) error {
	started := time.Now()
	n, err := repo.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithFields(ctx, logger.Fields{"action": "refresh_token_cleanup"}).Errorf("cleanup failed: %v", err)
		}
		return err
	}
	if n == 0 {
		return nil
	}
	metrics.SandboxRefreshTokensCleanupDeleted.Add(float64(n))
	log.WithFields(ctx, logger.Fields{
		"action":   "refresh_token_cleanup",
		"deleted":  n,
		"duration": time.Since(started).String(),
	}).Info("expired refresh tokens removed")
	return nil
}
