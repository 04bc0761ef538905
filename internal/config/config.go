package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Notify   NotifyConfig
	Upload   UploadConfig
	Sweeper  SweeperConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `envconfig:"DB_HOST" default:"localhost"`
	Port            int    `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"postgres"`
	Password        string `envconfig:"DB_PASSWORD"`
	Database        string `envconfig:"DB_NAME" default:"storefront"`
	MaxConnections  int    `envconfig:"DB_MAX_CONNECTIONS" default:"25"`
	MinConnections  int    `envconfig:"DB_MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime int    `envconfig:"DB_MAX_CONN_LIFETIME" default:"300"` // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "console"
}

// AuthConfig holds bearer token configuration.
type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTIssuer string        `envconfig:"JWT_ISSUER" default:"storefront"`
	TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"24h"`
}

// StorageConfig holds payment proof storage configuration. S3 is tried first
// when enabled; the local directory is always available as a fallback.
type StorageConfig struct {
	S3Enabled     bool   `envconfig:"S3_ENABLED" default:"false"`
	Bucket        string `envconfig:"S3_BUCKET"`
	Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	Prefix        string `envconfig:"S3_PREFIX" default:"payment-proofs/"`
	PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`
	LocalDir      string `envconfig:"STORAGE_LOCAL_DIR" default:"./uploads"`
	LocalBaseURL  string `envconfig:"STORAGE_LOCAL_BASE_URL" default:"/uploads"`
}

// RedisConfig holds the Redis connection used for notifications and the sweeper lock.
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// NotifyConfig holds notification publishing configuration.
type NotifyConfig struct {
	Channel string        `envconfig:"NOTIFY_CHANNEL" default:"storefront.events"`
	Timeout time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"2s"`
}

// UploadConfig holds payment proof upload limits.
type UploadConfig struct {
	MaxProofBytes int64 `envconfig:"UPLOAD_MAX_PROOF_BYTES" default:"5242880"`
}

// SweeperConfig holds the stale unpaid order sweep configuration.
type SweeperConfig struct {
	Interval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"15m"`
	PaymentTTL  time.Duration `envconfig:"SWEEP_PAYMENT_TTL" default:"72h"`
	BatchSize   int           `envconfig:"SWEEP_BATCH_SIZE" default:"100"`
	LockKey     string        `envconfig:"SWEEP_LOCK_KEY" default:"storefront:sweeper:lock"`
	LockTTL     time.Duration `envconfig:"SWEEP_LOCK_TTL" default:"10m"`
	// MetricsAddr serves /metrics for the sweeper process. Empty disables it.
	MetricsAddr string        `envconfig:"SWEEP_METRICS_ADDR" default:":9091"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Storage.S3Enabled {
		if c.Storage.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.Storage.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Storage.LocalDir == "" {
		return fmt.Errorf("local storage directory is required")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Upload.MaxProofBytes < 1 {
		return fmt.Errorf("upload max proof bytes must be positive")
	}

	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	if c.Sweeper.PaymentTTL <= 0 {
		return fmt.Errorf("sweep payment TTL must be positive")
	}

	if c.Sweeper.BatchSize < 1 {
		return fmt.Errorf("sweep batch size must be at least 1")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
