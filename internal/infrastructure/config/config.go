package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port            string        `env:"PORT,             default=3000"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	JWTSecret       string        `env:"JWT_SECRET"`
	BcryptCost      int           `env:"BCRYPT_COST,      default=10"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	LLM   LLMConfig
	Redis RedisConfig
	Seed  SeedConfig
}

type LLMConfig struct {
	APIKey     string        `env:"LLM_API_KEY"`
	BaseURL    string        `env:"LLM_BASE_URL,    default=https://api.anthropic.com"`
	Model      string        `env:"LLM_MODEL,       default=claude-3-sonnet-20240229"`
	MaxTokens  int64         `env:"LLM_MAX_TOKENS,  default=1000"`
	APIVersion string        `env:"LLM_API_VERSION, default=2023-06-01"`
	Timeout    time.Duration `env:"LLM_TIMEOUT,     default=60s"`
}

// RedisConfig is optional: an empty Addr disables idempotent replay.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

// SeedConfig holds the plaintext passwords hashed into the built-in accounts at startup.
type SeedConfig struct {
	AdminPassword   string `env:"SEED_ADMIN_PASSWORD,   default=adminpass"`
	ManagerPassword string `env:"SEED_MANAGER_PASSWORD, default=managerpass"`
	UserPassword    string `env:"SEED_USER_PASSWORD,    default=userpass"`
}

// IsDevelopment reports whether human-readable logs should be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Address is the listen address for the HTTP server.
func (c *Config) Address() string {
	return ":" + c.Port
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l, which tests use to supply a fixed map.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("LLM_MAX_TOKENS must be positive"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d out of range [4,31]", c.BcryptCost))
	}
	return errors.Join(errs...)
}
