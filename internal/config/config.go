package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Every section is processed on its own with fully spelled keys, so a
// missing POSTGRES_USER never falls back to a bare USER variable.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	App      AppConfig
}

type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"localhost"`
	Port int    `envconfig:"SERVER_PORT" default:"8080"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type PostgresConfig struct {
	User        string `envconfig:"POSTGRES_USER" required:"true"`
	Password    string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Name        string `envconfig:"POSTGRES_DB" required:"true"`
	Host        string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port        int    `envconfig:"POSTGRES_PORT" default:"5432"`
	SSLMode     string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxConns    int32  `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	AutoMigrate bool   `envconfig:"POSTGRES_AUTO_MIGRATE" default:"false"`
}

type AppConfig struct {
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	CartTTL        time.Duration `envconfig:"CART_TTL" default:"15m"`
	RateLimit      int           `envconfig:"RATE_LIMIT" default:"20"`
	RateWindow     time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"2h"`
	LogLevel       slog.Level    `envconfig:"LOG_LEVEL" default:"info"`
}

// New reads an optional .env file, then the process environment.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var cfg Config
	for _, section := range []any{&cfg.Server, &cfg.Postgres, &cfg.Redis, &cfg.App} {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.Name == "":
		return fmt.Errorf("POSTGRES_USER, POSTGRES_PASSWORD and POSTGRES_DB are required")
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	case c.Postgres.Port <= 0 || c.Postgres.Port > 65535:
		return fmt.Errorf("invalid POSTGRES_PORT %d", c.Postgres.Port)
	case c.Postgres.MaxConns <= 0:
		return fmt.Errorf("invalid POSTGRES_MAX_CONNS %d", c.Postgres.MaxConns)
	case c.App.SweepInterval <= 0:
		return fmt.Errorf("invalid SWEEP_INTERVAL %s", c.App.SweepInterval)
	case c.App.CartTTL <= 0:
		return fmt.Errorf("invalid CART_TTL %s", c.App.CartTTL)
	case c.App.RateLimit <= 0 || c.App.RateWindow <= 0:
		return fmt.Errorf("invalid RATE_LIMIT %d per %s", c.App.RateLimit, c.App.RateWindow)
	case c.App.IdempotencyTTL <= 0:
		return fmt.Errorf("invalid IDEMPOTENCY_TTL %s", c.App.IdempotencyTTL)
	}

	return nil
}
