package config

import (
	"fmt"

	pkgconfig "github.com/Faraz011/virasat-backend/pkg/config"
)

// Config holds all configuration for the storefront backend.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"virasat"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"virasat_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"virasat"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int32  `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32  `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis
	RedisHost        string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort        int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword    string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`
	ProductCacheTTLS int    `env:"PRODUCT_CACHE_TTL_SECONDS" envDefault:"300"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Sessions
	SessionJWTSecret string `env:"SESSION_JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`

	// Payment gateway
	GatewayBaseURL       string `env:"GATEWAY_BASE_URL" envDefault:"https://api.gateway.test"`
	GatewayKeyID         string `env:"GATEWAY_KEY_ID" envDefault:"key_development"`
	GatewayKeySecret     string `env:"GATEWAY_KEY_SECRET" envDefault:"secret_development"`
	GatewayWebhookSecret string `env:"GATEWAY_WEBHOOK_SECRET" envDefault:"webhook_development"`

	// Observability
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Pprof
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	// In non-development environments, require explicitly set, strong secrets.
	if cfg.Environment != "development" {
		if cfg.SessionJWTSecret == "change-this-to-a-secure-secret" {
			return nil, fmt.Errorf("SESSION_JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.SessionJWTSecret) < 32 {
			return nil, fmt.Errorf("SESSION_JWT_SECRET must be at least 32 characters long, got %d", len(cfg.SessionJWTSecret))
		}
		if cfg.GatewayKeySecret == "secret_development" {
			return nil, fmt.Errorf("GATEWAY_KEY_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if cfg.GatewayWebhookSecret == "webhook_development" {
			return nil, fmt.Errorf("GATEWAY_WEBHOOK_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// SecureCookies reports whether session cookies should carry the Secure flag.
// Only plain-HTTP local development goes without it.
func (c *Config) SecureCookies() bool {
	return c.Environment != "development"
}
