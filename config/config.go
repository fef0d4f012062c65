package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/clinicops/schedule-api/internal/email"
	"github.com/clinicops/schedule-api/internal/middleware"
	"github.com/clinicops/schedule-api/internal/repository/postgres"
	authservice "github.com/clinicops/schedule-api/internal/service/auth"
	"github.com/clinicops/schedule-api/internal/worker"
	"github.com/clinicops/schedule-api/pkg/auth"
	apperrors "github.com/clinicops/schedule-api/pkg/errors"
	"github.com/clinicops/schedule-api/pkg/messaging/redis"
)

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	Expiry        time.Duration `mapstructure:"expiry"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer        string        `mapstructure:"issuer"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type OutboxConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
}

type AuditConfig struct {
	RetentionDays   int    `mapstructure:"retention_days"`
	CleanupSchedule string `mapstructure:"cleanup_schedule"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

type Config struct {
	Server    ServerConfig                 `mapstructure:"server"`
	Database  DatabaseConfig               `mapstructure:"database"`
	JWT       JWTConfig                    `mapstructure:"jwt"`
	Auth      authservice.Config           `mapstructure:"auth"`
	Redis     RedisConfig                  `mapstructure:"redis"`
	Email     email.Config                 `mapstructure:"email"`
	RateLimit middleware.RateLimitConfig   `mapstructure:"rate_limit"`
	CORS      middleware.CORSConfig        `mapstructure:"cors"`
	Timeout   middleware.TimeoutConfig     `mapstructure:"timeout"`
	Outbox    OutboxConfig                 `mapstructure:"outbox"`
	Audit     AuditConfig                  `mapstructure:"audit"`
	Log       LogConfig                    `mapstructure:"log"`
	Metrics   MetricsConfig                `mapstructure:"metrics"`
}

// Load reads config.yml and applies SCHEDULE_* environment overrides. A
// missing config file is not fatal; environment variables alone can carry
// a complete configuration.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	cfg := defaults()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process("schedule", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		Database: DatabaseConfig{
			Port:         5432,
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		JWT: JWTConfig{
			Expiry:        24 * time.Hour,
			RefreshExpiry: 7 * 24 * time.Hour,
			Issuer:        "schedule-api",
		},
		Auth: authservice.Config{
			ProfileLoadTimeout: 3 * time.Second,
		},
		Redis: RedisConfig{
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		RateLimit: middleware.DefaultRateLimitConfig(),
		CORS:      middleware.DefaultCORSConfig(),
		Timeout:   middleware.DefaultTimeoutConfig(),
		Outbox: OutboxConfig{
			BatchSize:    100,
			PollInterval: 5 * time.Second,
			MaxRetries:   3,
			RetryDelay:   5 * time.Second,
		},
		Audit: AuditConfig{
			RetentionDays:   90,
			CleanupSchedule: "0 3 * * *",
		},
		Log: LogConfig{Level: "info"},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "schedule_api",
			Path:      "/metrics",
		},
	}
}

// Validate reports missing required settings before anything tries to
// connect, so an unconfigured deployment fails with one clear error
// instead of a connection stack trace.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.Host == "" {
		missing = append(missing, "database.host")
	}
	if c.Database.User == "" {
		missing = append(missing, "database.user")
	}
	if c.Database.Name == "" {
		missing = append(missing, "database.name")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret")
	}
	if len(missing) > 0 {
		return apperrors.NotConfigured(
			"missing required configuration: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// ToRepoConfig adapts the database section to the repository package.
func (c *DatabaseConfig) ToRepoConfig() postgres.Config {
	return postgres.Config{
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		Name:         c.Name,
		SSLMode:      c.SSLMode,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
	}
}

// ToJWTConfig adapts the jwt section to the auth package.
func (c *JWTConfig) ToJWTConfig() auth.Config {
	return auth.Config{
		Secret:        c.Secret,
		RefreshSecret: c.RefreshSecret,
		Expiry:        c.Expiry,
		RefreshExpiry: c.RefreshExpiry,
		Issuer:        c.Issuer,
	}
}

// ToWorkerConfig adapts the outbox section to the worker package.
func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:    c.BatchSize,
		PollInterval: c.PollInterval,
		MaxRetries:   c.MaxRetries,
		RetryDelay:   c.RetryDelay,
	}
}

// ToBrokerConfig adapts the redis section to the broker package.
func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}
