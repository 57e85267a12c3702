// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// migratedLocationTable is the table created by internal/db/migrations.
const migratedLocationTable = "device_locations"

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// HTTPReadTimeout and HTTPWriteTimeout bound a single request (e.g. "10s").
	HTTPReadTimeout  string `mapstructure:"HTTP_READ_TIMEOUT"`
	HTTPWriteTimeout string `mapstructure:"HTTP_WRITE_TIMEOUT"`
	// DatabaseURL is the Postgres DSN. When empty the server uses an in-memory store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SeedMemoryStore loads the sample device tracks into the in-memory store at startup.
	// Ignored when DatabaseURL is set; use cmd/seed for Postgres.
	SeedMemoryStore bool `mapstructure:"SEED_MEMORY_STORE"`
	// LocationTable is the table holding location history (default device_locations).
	// The embedded migrations only create device_locations; any other table must be created
	// by the operator with the same columns (device_id, ts, payload).
	LocationTable string `mapstructure:"LOCATION_TABLE"`
	// DefaultPageSize is used when a request has no limit (default 10).
	DefaultPageSize int `mapstructure:"DEFAULT_PAGE_SIZE"`
	// MaxPageSize is the largest accepted limit. Zero (the default) means no upper bound.
	MaxPageSize int `mapstructure:"MAX_PAGE_SIZE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Telemetry (optional). When Kafka brokers are set, the server emits one event per request.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events (default location-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("HTTP_READ_TIMEOUT", "10s")
	v.SetDefault("HTTP_WRITE_TIMEOUT", "30s")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SEED_MEMORY_STORE", false)
	v.SetDefault("LOCATION_TABLE", "device_locations")
	v.SetDefault("DEFAULT_PAGE_SIZE", 10)
	v.SetDefault("MAX_PAGE_SIZE", 0)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "location-history")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "location-telemetry")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if strings.TrimSpace(cfg.LocationTable) == "" {
		cfg.LocationTable = "device_locations"
	}
	if cfg.MaxPageSize < 0 {
		return nil, errors.New("config: MAX_PAGE_SIZE must not be negative")
	}
	if cfg.DefaultPageSize <= 0 {
		return nil, errors.New("config: DEFAULT_PAGE_SIZE must be positive")
	}
	if cfg.MaxPageSize > 0 && cfg.DefaultPageSize > cfg.MaxPageSize {
		return nil, errors.New("config: DEFAULT_PAGE_SIZE must not exceed MAX_PAGE_SIZE")
	}
	if cfg.DatabaseURL == "" && cfg.Env == "production" {
		return nil, errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// ReadTimeout parses HTTPReadTimeout as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) ReadTimeout() time.Duration {
	d, err := time.ParseDuration(c.HTTPReadTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// WriteTimeout parses HTTPWriteTimeout as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) WriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.HTTPWriteTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MigratedLocationTable reports whether LocationTable is the table the embedded migrations create.
func (c *Config) MigratedLocationTable() bool {
	return c != nil && strings.TrimSpace(c.LocationTable) == migratedLocationTable
}
