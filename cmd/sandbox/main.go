package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Falconext/pos-web-sub003/internal/common/clock"
	"github.com/Falconext/pos-web-sub003/internal/common/config"
	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	commoncrypto "github.com/Falconext/pos-web-sub003/internal/common/crypto"
	commonhttp "github.com/Falconext/pos-web-sub003/internal/common/http"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	srv "github.com/Falconext/pos-web-sub003/internal/common/server"
	"github.com/Falconext/pos-web-sub003/internal/sandbox/cleanup"
	sandboxhttp "github.com/Falconext/pos-web-sub003/internal/sandbox/http"
	"github.com/Falconext/pos-web-sub003/internal/sandbox/service"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.LoadSandboxConfig(*configPath)
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to load config: %v\n", err))
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Dir:     cfg.Log.Dir,
		Service: "sandbox",
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	users, err := cfg.ParseUsers()
	if err != nil {
		log.Fatalf("failed to parse sandbox users: %v", err)
	}

	clk := clock.NewRealClock()
	idGenerator := commoncrypto.NewUUIDGenerator()
	issuer := service.NewTokenIssuer(cfg.JWTSecret, idGenerator, cfg.AccessTokenTTL, clk)
	refreshTokens := service.NewRefreshTokenStore(clk)

	authService, err := service.NewAuthService(
		users,
		&commoncrypto.BcryptHasher{},
		idGenerator,
		issuer,
		refreshTokens,
		cfg.RefreshTokenTTL,
		clk,
		log,
	)
	if err != nil {
		log.Fatalf("failed to create auth service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go cleanup.StartCleanup(ctx, refreshTokens, constants.RefreshTokenStoreCleanupInterval, log)

	handler := commonhttp.BuildBaseHandler("sandbox", log, sandboxhttp.NewHandler(authService, issuer, log))

	log.Infof("sandbox: %d account(s), access ttl=%v refresh ttl=%v", len(users), cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	server := srv.New("sandbox", cfg.HTTPPort, handler, log)
	server.OnShutdown("refresh_token_cleanup", func(ctx context.Context) error {
		cancel()
		return nil
	})

	if err := server.RunUntilSignal(); err != nil {
		log.Fatalf("sandbox stopped: %v", err)
	}
}
