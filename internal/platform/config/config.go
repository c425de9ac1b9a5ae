// Package config builds service configuration from environment variables so
// main stays lean. Empty connection strings select the in-memory
// implementations, which keeps local development dependency-free.
package config

import (
	"os"
	"strconv"
	"time"
)

// Environment names. Anything other than production is treated as a
// development-grade environment (dev OTP codes may be echoed).
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ProviderMode selects the identity provider backend.
const (
	ProviderModeSandbox = "sandbox"
	ProviderModeLive    = "live"
)

// Config is the top-level service configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Provider Provider
	Vault    Vault
	Audit    Audit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
}

// IsProduction reports whether the service runs in production mode.
func (s Server) IsProduction() bool { return s.Environment == EnvProduction }

// Postgres captures database configuration. An empty DSN selects the
// in-memory stores.
type Postgres struct {
	DSN string
}

// Redis captures cache configuration. An empty URL selects the in-memory
// challenge store.
type Redis struct {
	URL string
}

// Provider captures identity provider gateway configuration.
type Provider struct {
	Mode         string
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	ChallengeTTL time.Duration
}

// Vault captures document-number encryption configuration. Key is hex-encoded
// and must decode to 32 bytes.
type Vault struct {
	Key string
}

// Audit captures audit sink configuration.
type Audit struct {
	KafkaBrokers           string
	Topic                  string
	CaptureProviderPayload bool
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("KYC_GATEWAY_ADDR", ":8080"),
			Environment:   envOr("ENVIRONMENT", EnvDevelopment),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Redis: Redis{
			URL: os.Getenv("REDIS_URL"),
		},
		Provider: Provider{
			Mode:         envOr("PROVIDER_MODE", ProviderModeSandbox),
			BaseURL:      os.Getenv("PROVIDER_BASE_URL"),
			APIKey:       os.Getenv("PROVIDER_API_KEY"),
			Timeout:      envDuration("PROVIDER_TIMEOUT", 5*time.Second),
			ChallengeTTL: envDuration("CHALLENGE_TTL", 5*time.Minute),
		},
		Vault: Vault{
			Key: os.Getenv("VAULT_KEY"),
		},
		Audit: Audit{
			KafkaBrokers:           os.Getenv("AUDIT_KAFKA_BROKERS"),
			Topic:                  envOr("AUDIT_TOPIC", "kyc.audit"),
			CaptureProviderPayload: envBool("AUDIT_CAPTURE_PROVIDER_PAYLOAD", false),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
