package constants

import "time"

const (
	JWTSecretMinLength = 32
	RefreshTokenSize   = 32

	DefaultMaxRequestSize = 1 << 20
	MaxUpstreamBodySize   = 10 << 20
	UsernameMaxLength     = 64
	PasswordMaxLength     = 72

	DefaultUpstreamTimeout = 30 * time.Second
	DefaultRefreshTimeout  = 15 * time.Second
	RedisCredentialsPrefix = "pos-gateway:credentials:"

	RefreshTokenStoreCleanupInterval = 30 * time.Second

	DBPoolMaxConns        = 5
	DBPoolMinConns        = 1
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 60 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	LoginRateLimitPerSecond  = 1
	LoginRateLimitBurst      = 5
	RateLimitCleanupInterval = 5 * time.Minute

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
