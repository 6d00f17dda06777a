package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultConsentMaxTTL caps how far in the future a consent may expire
// unless CONSENT_MAX_TTL overrides it.
const DefaultConsentMaxTTL = 365 * 24 * time.Hour

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Environment    string
	JWTSigningKey  string
	JWTIssuer      string
	JWTAudience    string
	AdminAPIToken  string
	RequestTimeout time.Duration
	ConsentMaxTTL  time.Duration

	Audit    Audit
	Kafka    Kafka
	Redis    RedisConfig
	Postgres Postgres
}

// Audit configures the system-level audit pipeline.
type Audit struct {
	// Sinks selects where system-level audit events go: any comma-separated
	// combination of "memory", "kafka", "redis", "postgres".
	Sinks []string
	// Buffer > 0 enables async emission with that channel capacity.
	Buffer int
	// SampleRate applies to operations-category events only (0.0 to 1.0).
	SampleRate float64
}

// Kafka configures the audit event producer.
type Kafka struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// RedisConfig configures the Redis client used by the stream audit sink.
type RedisConfig struct {
	URL          string
	Stream       string
	MaxLen       int64
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures the audit archive database.
type Postgres struct {
	DSN string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := getEnv("AGGREGATOR_ADDR", ":8080")
	environment := getEnv("ENVIRONMENT", "development")

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:           addr,
		Environment:    environment,
		JWTSigningKey:  jwtSigningKey,
		JWTIssuer:      getEnv("JWT_ISSUER", "aggregator"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "fdx-api"),
		AdminAPIToken:  os.Getenv("ADMIN_API_TOKEN"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ConsentMaxTTL:  getEnvDuration("CONSENT_MAX_TTL", DefaultConsentMaxTTL),

		Audit: Audit{
			Sinks:      splitList(getEnv("AUDIT_SINKS", "memory")),
			Buffer:     getEnvInt("AUDIT_BUFFER", 256),
			SampleRate: getEnvFloat("AUDIT_SAMPLE_RATE", 1.0),
		},
		Kafka: Kafka{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			Topic:           getEnv("AUDIT_TOPIC", "aggregator.audit"),
			Acks:            getEnv("KAFKA_ACKS", "all"),
			Retries:         getEnvInt("KAFKA_RETRIES", 5),
			DeliveryTimeout: getEnvDuration("KAFKA_DELIVERY_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			Stream:       getEnv("AUDIT_STREAM", "aggregator:audit"),
			MaxLen:       int64(getEnvInt("AUDIT_STREAM_MAXLEN", 100000)),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
