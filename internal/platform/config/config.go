package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all service configuration. FromEnv builds it from
// environment variables so main stays lean.
type Config struct {
	Server       Server
	Postgres     Postgres
	Redis        Redis
	Kafka        Kafka
	Geo          Geo
	Turnstile    Turnstile
	Verification Verification
	Dedup        Dedup
	RateLimit    RateLimit
	Enrichment   Enrichment
	Builder      Builder
	Downstream   Downstream
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	TrustedOrigins []string
}

// Postgres captures the submission store connection.
type Postgres struct {
	URL string
}

// Redis captures the claim store connection.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the event transport. When disabled, the server falls back
// to an in-process queue and the /process push endpoint.
type Kafka struct {
	Enabled bool
	Brokers []string
	Topic   string
	Group   string
}

// Geo captures the geolocation database location.
type Geo struct {
	MMDBPath string
}

// Turnstile captures the CAPTCHA verification endpoint.
type Turnstile struct {
	Secret   string
	Endpoint string
}

// Verification captures one-time code issuance parameters.
type Verification struct {
	CodeLength int
	TTL        time.Duration
	SenderURL  string
}

// Dedup captures the claim window for asynchronous processing.
type Dedup struct {
	TTL time.Duration
}

// RateLimit captures the historical submission window.
type RateLimit struct {
	Window time.Duration
}

// Enrichment captures waterfall provider parameters. Providers run in the
// order listed here; an unset URL disables that provider.
type Enrichment struct {
	ProviderTimeout time.Duration
	PrimaryURL      string
	PrimaryKey      string
	SecondaryURL    string
	SecondaryKey    string
}

// Builder captures the provisioning capacity probe.
type Builder struct {
	BaseURL      string
	ProbeTimeout time.Duration
}

// Downstream captures the provisioning and marketing endpoints called by the
// processor.
type Downstream struct {
	ProvisionerURL string
	MarketingURL   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:           envOr("LEADGATE_ADDR", ":8080"),
			TrustedOrigins: splitList(os.Getenv("LEADGATE_TRUSTED_ORIGINS")),
		},
		Postgres: Postgres{
			URL: os.Getenv("POSTGRES_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Enabled: os.Getenv("KAFKA_ENABLED") == "true",
			Brokers: splitList(envOr("KAFKA_BROKERS", "localhost:9092")),
			Topic:   envOr("KAFKA_TOPIC", "lead-submissions"),
			Group:   envOr("KAFKA_GROUP", "lead-processor"),
		},
		Geo: Geo{
			MMDBPath: envOr("GEOIP_MMDB_PATH", "GeoLite2-Country.mmdb"),
		},
		Turnstile: Turnstile{
			Secret:   os.Getenv("TURNSTILE_SECRET"),
			Endpoint: envOr("TURNSTILE_ENDPOINT", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		},
		Verification: Verification{
			CodeLength: envInt("VERIFICATION_CODE_LENGTH", 6),
			TTL:        envDuration("VERIFICATION_CODE_TTL", 10*time.Minute),
			SenderURL:  os.Getenv("VERIFICATION_SENDER_URL"),
		},
		Dedup: Dedup{
			TTL: envDuration("DEDUP_CLAIM_TTL", 24*time.Hour),
		},
		RateLimit: RateLimit{
			Window: envDuration("RATE_LIMIT_WINDOW", 365*24*time.Hour),
		},
		Enrichment: Enrichment{
			ProviderTimeout: envDuration("ENRICHMENT_PROVIDER_TIMEOUT", 3*time.Second),
			PrimaryURL:      os.Getenv("ENRICHMENT_PRIMARY_URL"),
			PrimaryKey:      os.Getenv("ENRICHMENT_PRIMARY_KEY"),
			SecondaryURL:    os.Getenv("ENRICHMENT_SECONDARY_URL"),
			SecondaryKey:    os.Getenv("ENRICHMENT_SECONDARY_KEY"),
		},
		Builder: Builder{
			BaseURL:      os.Getenv("BUILDER_URL"),
			ProbeTimeout: envDuration("BUILDER_PROBE_TIMEOUT", 2*time.Second),
		},
		Downstream: Downstream{
			ProvisionerURL: os.Getenv("PROVISIONER_URL"),
			MarketingURL:   os.Getenv("MARKETING_URL"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
