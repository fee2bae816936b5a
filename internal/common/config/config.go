// Package config loads service configuration from an optional YAML file
// overlaid with environment variables.
//
// Sources, highest priority first: the explicit path passed by --config,
// CONFIG_PATH, then environment variables alone.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Falconext/pos-web-sub003/internal/common/constants"
	commonerrors "github.com/Falconext/pos-web-sub003/internal/common/errors"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type LogConfig struct {
	Dir    string `yaml:"dir"    env:"LOG_DIR"    env-default:"/var/log/pos-gateway"`
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"INFO"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url"     env:"UPSTREAM_BASE_URL"`
	Timeout     time.Duration `yaml:"timeout"      env:"UPSTREAM_TIMEOUT"      env-default:"30s"`
	LoginPath   string        `yaml:"login_path"   env:"UPSTREAM_LOGIN_PATH"   env-default:"/api/auth/login"`
	RefreshPath string        `yaml:"refresh_path" env:"UPSTREAM_REFRESH_PATH" env-default:"/api/auth/refresh"`
	LogoutPath  string        `yaml:"logout_path"  env:"UPSTREAM_LOGOUT_PATH"  env-default:"/api/auth/logout"`
	// ExpiredTokenCodes are application error codes treated like HTTP 401.
	ExpiredTokenCodes []int `yaml:"expired_token_codes" env:"UPSTREAM_EXPIRED_TOKEN_CODES" env-default:"21" env-separator:","`
}

type RefreshConfig struct {
	Timeout          time.Duration `yaml:"timeout"           env:"REFRESH_TIMEOUT"           env-default:"15s"`
	BreakerThreshold int32         `yaml:"breaker_threshold" env:"REFRESH_BREAKER_THRESHOLD" env-default:"5"`
	BreakerReset     time.Duration `yaml:"breaker_reset"     env:"REFRESH_BREAKER_RESET"     env-default:"30s"`
}

type StoreConfig struct {
	Kind        string        `yaml:"kind"         env:"CREDENTIAL_STORE"   env-default:"file"`
	TerminalID  string        `yaml:"terminal_id"  env:"TERMINAL_ID"        env-default:"default"`
	FilePath    string        `yaml:"file_path"    env:"CREDENTIALS_FILE"   env-default:"/var/lib/pos-gateway/credentials.json"`
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisAddr   string        `yaml:"redis_addr"   env:"REDIS_ADDR"         env-default:"localhost:6379"`
	RedisDB     int           `yaml:"redis_db"     env:"REDIS_DB"           env-default:"0"`
	RedisPass   string        `yaml:"redis_pass"   env:"REDIS_PASSWORD"`
	RedisTTL    time.Duration `yaml:"redis_ttl"    env:"REDIS_CREDENTIALS_TTL" env-default:"0s"`
}

type GatewayConfig struct {
	HTTPPort string         `yaml:"http_port" env:"GATEWAY_HTTP_PORT" env-default:"8090"`
	Log      LogConfig      `yaml:"log"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Store    StoreConfig    `yaml:"store"`
}

type SandboxConfig struct {
	HTTPPort        string        `yaml:"http_port"         env:"SANDBOX_HTTP_PORT"         env-default:"8091"`
	Log             LogConfig     `yaml:"log"`
	JWTSecret       string        `yaml:"jwt_secret"        env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"  env:"SANDBOX_ACCESS_TOKEN_TTL"  env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"SANDBOX_REFRESH_TOKEN_TTL" env-default:"168h"`
	// Users is a comma separated list of name:password pairs.
	Users string `yaml:"users" env:"SANDBOX_USERS" env-default:"cashier:cashier123"`
}

func LoadGatewayConfig(path string) (GatewayConfig, error) {
	var cfg GatewayConfig
	if err := read(path, &cfg); err != nil {
		return GatewayConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return GatewayConfig{}, err
	}
	return cfg, nil
}

func (c GatewayConfig) Validate() error {
	if c.Upstream.BaseURL == "" {
		return commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("UPSTREAM_BASE_URL"))
	}
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("DATABASE_URL"))
		}
	default:
		return fmt.Errorf("unknown credential store %q", c.Store.Kind)
	}
	if c.Refresh.Timeout <= 0 {
		return fmt.Errorf("refresh timeout must be positive, got %v", c.Refresh.Timeout)
	}
	return nil
}

func LoadSandboxConfig(path string) (SandboxConfig, error) {
	var cfg SandboxConfig
	if err := read(path, &cfg); err != nil {
		return SandboxConfig{}, err
	}
	if err := validateJWTSecret(cfg.JWTSecret); err != nil {
		return SandboxConfig{}, err
	}
	if _, err := cfg.ParseUsers(); err != nil {
		return SandboxConfig{}, err
	}
	return cfg, nil
}

// ParseUsers returns the configured sandbox accounts keyed by username.
func (c SandboxConfig) ParseUsers() (map[string]string, error) {
	users := make(map[string]string)
	for _, entry := range strings.Split(c.Users, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, password, ok := strings.Cut(entry, ":")
		if !ok || name == "" || password == "" {
			return nil, fmt.Errorf("invalid sandbox user entry %q: want name:password", entry)
		}
		users[name] = password
	}
	if len(users) == 0 {
		return nil, commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("SANDBOX_USERS"))
	}
	return users, nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("got %d bytes", len(secret)))
	}
	return nil
}

func read(path string, cfg any) error {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		return nil
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to read env: %w", err)
	}
	return nil
}
