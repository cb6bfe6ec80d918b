package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"

	DefaultGenerateObligationsSchedule = "0 0 * * *"
	DefaultCheckNotificationsSchedule  = "0 9,15,21 * * *"
)

type Config struct {
	CronSecret         string        `env:"CRON_SECRET"`
	Backend            string        `env:"BACKEND,default=supabase"`
	SupabaseURL        string        `env:"SUPABASE_URL,EXPO_PUBLIC_SUPABASE_URL"`
	SupabaseServiceKey string        `env:"SUPABASE_SERVICE_ROLE_KEY"`
	BackendTimeout     time.Duration `env:"BACKEND_TIMEOUT,default=30s"`
	DatabaseDSN        string        `env:"DATABASE_DSN"`
	DatabaseMigrate    bool          `env:"DATABASE_MIGRATE,default=false"`
	RedisURL           string        `env:"REDIS_URL"`
	AMQPURL            string        `env:"AMQP_URL"`
	RateLimitPerSec    int           `env:"TRIGGER_RATE_LIMIT_PER_SEC,default=0"`
	APIPort            int           `env:"API_PORT,PORT,default=3000"`
	LogLevel           string        `env:"LOG_LEVEL,default=info"`

	SchedulerEnabled  bool   `env:"SCHEDULER_ENABLED,default=false"`
	SchedulerTimezone string `env:"SCHEDULER_TIMEZONE,default=UTC"`
	// Cron expressions contain commas, which the env tag syntax cannot carry
	// as defaults; empty values are filled in by Load.
	GenerateObligationsSchedule string `env:"GENERATE_OBLIGATIONS_SCHEDULE"`
	CheckNotificationsSchedule  string `env:"CHECK_NOTIFICATIONS_SCHEDULE"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.SupabaseURL = strings.TrimRight(strings.TrimSpace(c.SupabaseURL), "/")
	c.SupabaseServiceKey = strings.TrimSpace(c.SupabaseServiceKey)
	c.DatabaseDSN = strings.TrimSpace(c.DatabaseDSN)

	if strings.TrimSpace(c.GenerateObligationsSchedule) == "" {
		c.GenerateObligationsSchedule = DefaultGenerateObligationsSchedule
	}
	if strings.TrimSpace(c.CheckNotificationsSchedule) == "" {
		c.CheckNotificationsSchedule = DefaultCheckNotificationsSchedule
	}
	if strings.TrimSpace(c.SchedulerTimezone) == "" {
		c.SchedulerTimezone = "UTC"
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendSupabase, BackendPostgres:
	default:
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendSupabase, BackendPostgres, c.Backend)
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.APIPort)
	}
	if c.RateLimitPerSec < 0 {
		return fmt.Errorf("TRIGGER_RATE_LIMIT_PER_SEC must be >= 0, got %d", c.RateLimitPerSec)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %s", c.BackendTimeout)
	}
	if _, err := time.LoadLocation(c.SchedulerTimezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE is invalid: %w", err)
	}
	return nil
}

// BackendEndpoint returns the endpoint and credential of the configured
// backend. Either may be empty; callers decide how to report that.
func (c *Config) BackendEndpoint() (endpoint string, credential string) {
	if c.Backend == BackendPostgres {
		// The DSN carries both the address and the credentials.
		return c.DatabaseDSN, c.DatabaseDSN
	}
	return c.SupabaseURL, c.SupabaseServiceKey
}

// Masked returns a copy safe to print.
func (c Config) Masked() Config {
	c.CronSecret = mask(c.CronSecret)
	c.SupabaseServiceKey = mask(c.SupabaseServiceKey)
	c.DatabaseDSN = mask(c.DatabaseDSN)
	c.RedisURL = mask(c.RedisURL)
	c.AMQPURL = mask(c.AMQPURL)
	return c
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return "****"
}

// Location returns the scheduler timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SchedulerTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
