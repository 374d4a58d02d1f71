// Package config loads all application configuration from the environment at
// process start. The resulting Config is immutable and passed by injection;
// nothing reads environment variables after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/layr-ng/layr-api/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Environment string // "production" or "development"

	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Mail          MailConfig
	Payment       PaymentConfig
	AI            AIConfig
	Thumbnails    ThumbnailConfig
	Observability ObservabilityConfig
	Pricing       PricingTable

	// ClientURL is the browser origin used in emailed links.
	ClientURL string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds the optional Redis configuration used by the
// distributed rate limiter.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
}

// AuthConfig holds session and token signing configuration
type AuthConfig struct {
	SessionSecret    string
	TeamInviteSecret string
	CookieName       string
	CookieSecure     bool
	SessionTTL       time.Duration
	ResetTokenTTL    time.Duration
	InviteTokenTTL   time.Duration
}

// MailConfig holds SMTP configuration for outbound mail
type MailConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// PaymentConfig holds payment gateway configuration
type PaymentConfig struct {
	FlutterwaveSecretKey string
	VerifyBaseURL        string
}

// AIConfig holds the Workers AI configuration for sequence prompting
type AIConfig struct {
	CloudflareAccountID string
	CloudflareAPIToken  string
	Model               string
}

// ThumbnailConfig holds object storage configuration for diagram thumbnails
type ThumbnailConfig struct {
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	PathPrefix string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	pricing, err := loadPricingTable(getEnv("LAYR_PRICING_FILE", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing table: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("LAYR_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("LAYR_HOST", "0.0.0.0"),
			Port:            getEnv("LAYR_PORT", "8080"),
			ReadTimeout:     getEnvDuration("LAYR_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("LAYR_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("LAYR_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("LAYR_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("LAYR_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:         getEnv("LAYR_POSTGRES_URL", ""),
			MaxConns:    getEnvInt("LAYR_POSTGRES_MAX_CONNS", 25),
			MinConns:    getEnvInt("LAYR_POSTGRES_MIN_CONNS", 5),
			Timeout:     getEnvDuration("LAYR_POSTGRES_TIMEOUT", 10*time.Second),
			MaxLifetime: getEnvDuration("LAYR_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("LAYR_REDIS_ENABLED", false),
			Addr:     getEnv("LAYR_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("LAYR_REDIS_PASSWORD", ""),
		},
		Auth: AuthConfig{
			SessionSecret:    getEnv("LAYR_JWT_AUTH_SECRET", ""),
			TeamInviteSecret: getEnv("LAYR_TEAM_INVITE_SECRET", ""),
			CookieName:       getEnv("LAYR_AUTH_COOKIE_NAME", "sTk"),
			CookieSecure:     getEnv("LAYR_ENV", "development") == "production",
			SessionTTL:       24 * time.Hour,
			ResetTokenTTL:    15 * time.Minute,
			InviteTokenTTL:   7 * 24 * time.Hour,
		},
		Mail: MailConfig{
			Host:     getEnv("LAYR_MAIL_HOST", ""),
			Port:     getEnv("LAYR_MAIL_PORT", "587"),
			User:     getEnv("LAYR_NO_REPLY_MAIL_USER", ""),
			Password: getEnv("LAYR_NO_REPLY_MAIL_PASSWORD", ""),
			From:     getEnv("LAYR_NO_REPLY_MAIL_USER", ""),
		},
		Payment: PaymentConfig{
			FlutterwaveSecretKey: getEnv("LAYR_FLUTTERWAVE_SECRET_KEY", ""),
			VerifyBaseURL:        getEnv("LAYR_FLUTTERWAVE_VERIFY_URL", "https://api.flutterwave.com/v3"),
		},
		AI: AIConfig{
			CloudflareAccountID: getEnv("LAYR_CLOUDFLARE_ACCOUNT_ID", ""),
			CloudflareAPIToken:  getEnv("LAYR_CLOUDFLARE_API_TOKEN", ""),
			Model:               getEnv("LAYR_AI_MODEL", "@cf/openai/gpt-oss-20b"),
		},
		Thumbnails: ThumbnailConfig{
			S3Bucket:   getEnv("LAYR_S3_BUCKET", ""),
			S3Region:   getEnv("LAYR_S3_REGION", "us-east-1"),
			S3Endpoint: getEnv("LAYR_S3_ENDPOINT", ""),
			PathPrefix: getEnv("LAYR_S3_PREFIX", "diagrams"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("LAYR_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("LAYR_METRICS_ENABLED", true),
		},
		Pricing:   pricing,
		ClientURL: getEnv("LAYR_CLIENT_URL", "http://localhost:5173"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks required configuration values
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("LAYR_POSTGRES_URL is required")
	}
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("LAYR_JWT_AUTH_SECRET is required")
	}
	if c.Auth.TeamInviteSecret == "" {
		return fmt.Errorf("LAYR_TEAM_INVITE_SECRET is required")
	}
	if c.Environment != "production" && c.Environment != "development" {
		return fmt.Errorf("LAYR_ENV must be production or development, got %q", c.Environment)
	}
	return c.Pricing.Validate()
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
