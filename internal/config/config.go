package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is cmd/server's full set of tunables. Everything the core
// workqueue package itself needs (backend choice, pool cap, idle
// timeout) is read here and passed to workqueue.New as functional
// options — the core library itself never reads the environment.
type Config struct {
	// Server
	Port         string        `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`

	// Core queue
	WorkqueueBackend        string        `envconfig:"WORKQUEUE_BACKEND" default:"thread"`
	WorkqueueMaxWorkers     uint32        `envconfig:"WORKQUEUE_MAX_WORKERS" default:"32"`
	WorkqueueTimeoutSeconds time.Duration `envconfig:"WORKQUEUE_TIMEOUT_SECONDS" default:"10s"`

	// Database
	PostgresURL string `envconfig:"POSTGRES_URL" required:"true"`

	// Redis
	RedisURL string `envconfig:"REDIS_URL" required:"true"`

	// NATS
	NATSURL string `envconfig:"NATS_URL" required:"true"`

	// AdminAPIKeyHash is a bcrypt hash; the raw key is never configured
	// or logged.
	AdminAPIKeyHash string `envconfig:"ADMIN_API_KEY_HASH" required:"true"`

	// Rate limiting (bridge accept path only)
	RateLimitRPS   int `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int `envconfig:"RATE_LIMIT_BURST" default:"100"`

	// Observability
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
