// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment ("development", "production"). Controls how
	// missing-tenant-context violations are reported (loud in development, deny-only in production).
	Env string `mapstructure:"APP_ENV"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or a path to one.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or a path to one.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim set on issued tokens and required on verify.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim set on issued tokens and required on verify.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "1h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`

	// IPHashPepper is mixed into the HMAC used to hash client IPs on session rows.
	// Sessions never store raw addresses.
	IPHashPepper string `mapstructure:"IP_HASH_PEPPER"`

	// FreePlanEntityLimit is the active-entity count above which free-plan tenants
	// become write-restricted.
	FreePlanEntityLimit int `mapstructure:"FREE_PLAN_ENTITY_LIMIT"`
	// RestrictionGraceDays is the signup grace window during which restrictions never apply.
	RestrictionGraceDays int `mapstructure:"RESTRICTION_GRACE_DAYS"`
	// RestrictionCacheTTL is how long a computed restriction status may be served
	// before recomputation (e.g. "2m"). Each process caches independently; instances
	// may disagree for at most one TTL.
	RestrictionCacheTTL string `mapstructure:"RESTRICTION_CACHE_TTL"`
	// UsageCollection is the document collection counted for plan-restriction purposes.
	UsageCollection string `mapstructure:"USAGE_COLLECTION"`

	// AuditKafkaBrokers is a comma-separated list of Kafka broker addresses. When set,
	// audit entries are also published to Kafka for the worker to ship to Loki.
	AuditKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit events.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the audit worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the worker pushes audit events to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces and metrics; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// LogLevel sets the zap level ("debug" or "info").
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "classtrack-auth")
	v.SetDefault("JWT_AUDIENCE", "classtrack-api")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("IP_HASH_PEPPER", "")
	v.SetDefault("FREE_PLAN_ENTITY_LIMIT", 14)
	v.SetDefault("RESTRICTION_GRACE_DAYS", 14)
	v.SetDefault("RESTRICTION_CACHE_TTL", "2m")
	v.SetDefault("USAGE_COLLECTION", "students")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "classtrack-audit")
	v.SetDefault("KAFKA_GROUP_ID", "classtrack-audit-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.FreePlanEntityLimit < 0 {
		return nil, errors.New("config: FREE_PLAN_ENTITY_LIMIT must not be negative")
	}
	if cfg.RestrictionGraceDays < 0 {
		return nil, errors.New("config: RESTRICTION_GRACE_DAYS must not be negative")
	}
	if cfg.UsageCollection == "" {
		return nil, errors.New("config: USAGE_COLLECTION must be set")
	}
	if cfg.Env == "production" && cfg.IPHashPepper == "" {
		return nil, errors.New("config: IP_HASH_PEPPER must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// Production reports whether the app runs with production semantics.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// CacheTTL parses RestrictionCacheTTL as a time.Duration. Returns 2m if unset or invalid.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.RestrictionCacheTTL)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// AuditKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the audit stream is enabled (non-empty list) and to create the producer.
func (c *Config) AuditKafkaBrokersList() []string {
	if c == nil || c.AuditKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
