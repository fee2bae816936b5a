package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

// NewPool connects with the gateway's small pool settings, retrying while the
// database comes up, and starts publishing pool gauges until ctx is done.
func NewPool(ctx context.Context, log *logger.Logger, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConns = constants.DBPoolMaxConns
	cfg.MinConns = constants.DBPoolMinConns
	cfg.MaxConnLifetime = constants.DBPoolConnMaxLifetime
	cfg.MaxConnIdleTime = constants.DBPoolConnMaxIdleTime
	cfg.HealthCheckPeriod = constants.DBPoolHealthCheck
	cfg.ConnConfig.ConnectTimeout = constants.DBPoolConnectTimeout
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "pos-gateway"

	var pool *pgxpool.Pool
	connect := func() error {
		p, err := pgxpool.ConnectConfig(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(constants.DBPoolRetryDelay), constants.DBPoolMaxAttempts-1),
		ctx,
	)
	err = backoff.RetryNotify(connect, policy, func(err error, next time.Duration) {
		log.Warnf("postgres not reachable, retrying in %v: %v", next, err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	log.Infof("postgres pool ready: max=%d min=%d", cfg.MaxConns, cfg.MinConns)
	go publishPoolStats(ctx, pool, constants.DBPoolMetricsInterval)
	return pool, nil
}

func publishPoolStats(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := pool.Stat()
			metrics.PostgresPoolConnections.WithLabelValues("acquired").Set(float64(stats.AcquiredConns()))
			metrics.PostgresPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns()))
			metrics.PostgresPoolConnections.WithLabelValues("total").Set(float64(stats.TotalConns()))
			metrics.PostgresPoolConnections.WithLabelValues("max").Set(float64(stats.MaxConns()))
		}
	}
}
