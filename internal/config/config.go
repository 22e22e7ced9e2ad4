// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment constants
const (
	EnvProduction = "production"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Queue     QueueConfig
	Tracing   TracingConfig
	Retention RetentionConfig
	Notify    NotifyConfig
	Sync      SyncConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name  string
	Env   string
	Debug bool
}

// ServerConfig holds the admin HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// StatementTimeout bounds every query; queue handlers may block on
	// downstream I/O and this is the per-operation ceiling.
	StatementTimeout time.Duration
}

// RedisConfig holds Redis configuration (asynq backend).
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds recurring-task intervals.
type SchedulerConfig struct {
	SLASweepInterval     time.Duration
	ReportSweepInterval  time.Duration
	HealthScoreInterval  time.Duration
	CleanupInterval      time.Duration
	TenantSweepParallel  int
	PerTenantActionRate  float64
	PerTenantActionBurst int
}

// QueueConfig holds worker pool configuration.
type QueueConfig struct {
	Concurrency int
}

// TracingConfig holds OTLP exporter configuration.
type TracingConfig struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

// RetentionConfig holds cleanup retention windows.
type RetentionConfig struct {
	ExecutionLogDays  int
	StatusHistoryDays int
}

// NotifyConfig holds outbound notification channel settings. A channel with
// no endpoint configured falls back to the log sender.
type NotifyConfig struct {
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFrom      string
	SlackWebhook  string
	OpsWebhookURL string
}

// SyncConfig holds the external system sync target.
type SyncConfig struct {
	Endpoint string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:  getEnv("APP_NAME", "firelater-automation"),
			Env:   getEnv("APP_ENV", "development"),
			Debug: getEnvBool("APP_DEBUG", false),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnvInt("DB_PORT", 5432),
			User:             getEnv("DB_USER", "firelater"),
			Password:         getEnv("DB_PASSWORD", ""),
			Name:             getEnv("DB_NAME", "firelater"),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			StatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Scheduler: SchedulerConfig{
			SLASweepInterval:     getEnvDuration("SCHEDULER_SLA_SWEEP_INTERVAL", time.Minute),
			ReportSweepInterval:  getEnvDuration("SCHEDULER_REPORT_SWEEP_INTERVAL", time.Minute),
			HealthScoreInterval:  getEnvDuration("SCHEDULER_HEALTH_SCORE_INTERVAL", 15*time.Minute),
			CleanupInterval:      getEnvDuration("SCHEDULER_CLEANUP_INTERVAL", 24*time.Hour),
			TenantSweepParallel:  getEnvInt("SCHEDULER_TENANT_SWEEP_PARALLEL", 4),
			PerTenantActionRate:  getEnvFloat("WORKFLOW_TENANT_ACTION_RATE", 10),
			PerTenantActionBurst: getEnvInt("WORKFLOW_TENANT_ACTION_BURST", 20),
		},
		Queue: QueueConfig{
			Concurrency: getEnvInt("QUEUE_CONCURRENCY", 5),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvBool("TRACING_ENABLED", false),
			Endpoint: getEnv("TRACING_OTLP_ENDPOINT", "localhost:4318"),
			Insecure: getEnvBool("TRACING_OTLP_INSECURE", true),
		},
		Retention: RetentionConfig{
			ExecutionLogDays:  getEnvInt("RETENTION_EXECUTION_LOG_DAYS", 90),
			StatusHistoryDays: getEnvInt("RETENTION_STATUS_HISTORY_DAYS", 365),
		},
		Notify: NotifyConfig{
			SMTPHost:      getEnv("NOTIFY_SMTP_HOST", ""),
			SMTPPort:      getEnvInt("NOTIFY_SMTP_PORT", 587),
			SMTPUsername:  getEnv("NOTIFY_SMTP_USERNAME", ""),
			SMTPPassword:  getEnv("NOTIFY_SMTP_PASSWORD", ""),
			SMTPFrom:      getEnv("NOTIFY_SMTP_FROM", "automation@firelater.local"),
			SlackWebhook:  getEnv("NOTIFY_SLACK_WEBHOOK", ""),
			OpsWebhookURL: getEnv("NOTIFY_OPS_WEBHOOK_URL", ""),
		},
		Sync: SyncConfig{
			Endpoint: getEnv("SYNC_ENDPOINT", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("queue concurrency must be at least 1")
	}
	if c.Scheduler.TenantSweepParallel < 1 {
		return fmt.Errorf("tenant sweep parallelism must be at least 1")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.IsProduction() {
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("DB_SSLMODE must not be disable in production")
		}
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns the Redis address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the server listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
