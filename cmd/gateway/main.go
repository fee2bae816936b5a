package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	"github.com/Falconext/pos-web-sub003/internal/common/config"
	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	"github.com/Falconext/pos-web-sub003/internal/common/db"
	commonhttp "github.com/Falconext/pos-web-sub003/internal/common/http"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/common/resilience"
	srv "github.com/Falconext/pos-web-sub003/internal/common/server"
	gatewayhttp "github.com/Falconext/pos-web-sub003/internal/gateway/http"
	"github.com/Falconext/pos-web-sub003/internal/gateway/repository"
	"github.com/Falconext/pos-web-sub003/internal/gateway/service"
	"github.com/Falconext/pos-web-sub003/internal/gateway/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.LoadGatewayConfig(*configPath)
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to load config: %v\n", err))
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Dir:     cfg.Log.Dir,
		Service: "gateway",
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	log = log.With(logger.Fields{"terminal_id": cfg.Store.TerminalID})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewRealClock()
	backend, closeStore, err := openStore(ctx, cfg.Store, clk, log)
	if err != nil {
		log.Fatalf("failed to open credential store: %v", err)
	}
	store := repository.Instrument(backend, cfg.Store.Kind)

	upstream := transport.NewHTTPTransport(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	authClient := transport.NewAuthClient(upstream, cfg.Upstream.LoginPath, cfg.Upstream.RefreshPath, cfg.Upstream.LogoutPath)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  cfg.Refresh.BreakerThreshold,
		ResetAfter: cfg.Refresh.BreakerReset,
		IsFailure:  service.IsUpstreamOutage,
		Clock:      clk,
		Name:       "upstream_auth",
		Logger:     log,
	})

	sessions := service.NewSessionService(authClient, store, breaker, clk, log)
	gateway := service.NewGateway(
		upstream,
		authClient,
		store,
		breaker,
		service.Config{
			LoginPath:         cfg.Upstream.LoginPath,
			RefreshPath:       cfg.Upstream.RefreshPath,
			ExpiredTokenCodes: cfg.Upstream.ExpiredTokenCodes,
			RefreshTimeout:    cfg.Refresh.Timeout,
		},
		sessions.OnLogout,
		log,
	)

	loginLimiter := commonhttp.NewRateLimiter("session_login", constants.LoginRateLimitPerSecond, constants.LoginRateLimitBurst)
	router := gatewayhttp.NewRouter(gateway, sessions, loginLimiter, log)
	handler := commonhttp.BuildBaseHandler("gateway", log, router)

	log.Infof("gateway: upstream=%s store=%s", cfg.Upstream.BaseURL, cfg.Store.Kind)

	server := srv.New("gateway", cfg.HTTPPort, handler, log)
	server.OnShutdown("login_limiter", func(ctx context.Context) error {
		loginLimiter.Close()
		return nil
	})
	server.OnShutdown("credential_store", func(ctx context.Context) error {
		cancel()
		return closeStore()
	})

	if err := server.RunUntilSignal(); err != nil {
		log.Fatalf("gateway stopped: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig, clk clock.Clock, log *logger.Logger) (repository.CredentialStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case config.StoreMemory:
		log.Warnf("credential store is in-memory: sessions are lost on restart")
		return repository.NewMemoryStore(), noop, nil

	case config.StoreFile:
		store, err := repository.NewFileStore(cfg.FilePath, clk)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case config.StorePostgres:
		pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPgStore(pool, cfg.TerminalID, log)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, func() error {
			pool.Close()
			return nil
		}, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		store := repository.NewRedisStore(client, cfg.TerminalID, cfg.RedisTTL, clk)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return store, client.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown credential store %q", cfg.Kind)
}
