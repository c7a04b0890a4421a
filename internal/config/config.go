// Package config loads worker process settings from the environment and
// command-line flags.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/petrijr/taskhub/pkg/api"
)

// Config holds the worker process configuration. Environment variables set
// the defaults and flags override them.
type Config struct {
	SidecarAddr            string `env:"TASKHUB_SIDECAR_ADDR"              envDefault:"localhost:4001"`
	MaxConcurrentWorkItems int    `env:"TASKHUB_MAX_CONCURRENT_WORK_ITEMS" envDefault:"100"`

	DeliveryMaxAttempts int           `env:"TASKHUB_DELIVERY_MAX_ATTEMPTS" envDefault:"1"`
	DeliveryBackoff     time.Duration `env:"TASKHUB_DELIVERY_BACKOFF"      envDefault:"200ms"`
	DeliveryMaxBackoff  time.Duration `env:"TASKHUB_DELIVERY_MAX_BACKOFF"  envDefault:"5s"`

	// DeadLetterDSN selects where undeliverable completions go. Empty means
	// they are only logged.
	DeadLetterDSN string `env:"TASKHUB_DEAD_LETTER_DSN"`

	// AdminAddr is the listen address of the health and metrics server.
	// Empty disables it.
	AdminAddr string `env:"TASKHUB_ADMIN_ADDR" envDefault:":9464"`

	OTelEndpoint string `env:"TASKHUB_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"TASKHUB_OTEL_ENABLED" envDefault:"true"`

	LogLevel slog.Level `env:"TASKHUB_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.SidecarAddr, "sidecar-addr", cfg.SidecarAddr, "The durable-task sidecar gRPC address")
	fs.IntVar(&cfg.MaxConcurrentWorkItems, "max-concurrent", cfg.MaxConcurrentWorkItems, "Maximum work items handled at once (0 = unbounded)")
	fs.IntVar(&cfg.DeliveryMaxAttempts, "delivery-max-attempts", cfg.DeliveryMaxAttempts, "Attempts per completion call, including the first")
	fs.DurationVar(&cfg.DeliveryBackoff, "delivery-backoff", cfg.DeliveryBackoff, "Delay before the first completion retry")
	fs.DurationVar(&cfg.DeliveryMaxBackoff, "delivery-max-backoff", cfg.DeliveryMaxBackoff, "Upper bound on completion retry delay")
	fs.StringVar(&cfg.DeadLetterDSN, "dead-letter-dsn", cfg.DeadLetterDSN, "Dead-letter store (memory://, sqlite://, postgres://, redis://, mongodb://)")
	fs.StringVar(&cfg.AdminAddr, "admin-addr", cfg.AdminAddr, "Admin HTTP listen address (empty disables it)")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace endpoint URL")
	fs.BoolVar(&cfg.OTelEnabled, "otel-enabled", cfg.OTelEnabled, "Export traces when an endpoint is set")
	fs.TextVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	if c.SidecarAddr == "" {
		return fmt.Errorf("sidecar address is required")
	}
	if c.MaxConcurrentWorkItems < 0 {
		return fmt.Errorf("max concurrent work items must not be negative, got %d", c.MaxConcurrentWorkItems)
	}
	if c.DeliveryMaxAttempts < 1 {
		return fmt.Errorf("delivery max attempts must be at least 1, got %d", c.DeliveryMaxAttempts)
	}
	return nil
}

// DeliveryRetry converts the delivery settings into a retry policy with
// exponential backoff.
func (c Config) DeliveryRetry() api.RetryPolicy {
	return api.RetryPolicy{
		MaxAttempts:       c.DeliveryMaxAttempts,
		InitialBackoff:    c.DeliveryBackoff,
		MaxBackoff:        c.DeliveryMaxBackoff,
		BackoffMultiplier: 2,
	}
}
