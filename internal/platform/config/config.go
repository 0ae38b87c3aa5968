package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// PostgresDSN selects the durable stores; empty runs fully in-memory
	// (dev mode, nothing survives a restart).
	PostgresDSN string

	Redis RedisConfig
	Kafka KafkaConfig

	// SigningKey is the base64 raw-url-encoded Ed25519 seed used to sign
	// license artifacts. Empty generates an ephemeral dev key at startup.
	SigningKey string

	// AdminCredentials maps actor labels to their API token (bcrypt hash,
	// or plaintext for development). Format: "actor=token,actor2=token2".
	AdminCredentials map[string]string
}

// RedisConfig configures the rebind exception store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox pipeline. Empty brokers disable it
// (audit entries are still written; they just stay in the outbox).
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("KEYGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	creds := parseAdminCredentials(os.Getenv("KEYGATE_ADMIN_TOKENS"))
	if len(creds) == 0 {
		// Dev default - must be overridden in production.
		creds = map[string]string{"dev-admin": "dev-admin-token-change-in-production"}
	}

	topic := os.Getenv("KEYGATE_KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "keygate.audit"
	}
	group := os.Getenv("KEYGATE_KAFKA_CONSUMER_GROUP")
	if group == "" {
		group = "keygate-audit-materializer"
	}

	return Server{
		Addr:        addr,
		PostgresDSN: os.Getenv("KEYGATE_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("KEYGATE_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       splitNonEmpty(os.Getenv("KEYGATE_KAFKA_BROKERS")),
			Topic:         topic,
			ConsumerGroup: group,
		},
		SigningKey:       os.Getenv("KEYGATE_SIGNING_KEY"),
		AdminCredentials: creds,
	}
}

func parseAdminCredentials(raw string) map[string]string {
	creds := make(map[string]string)
	for _, pair := range splitNonEmpty(raw) {
		actor, token, ok := strings.Cut(pair, "=")
		if !ok || actor == "" || token == "" {
			continue
		}
		creds[actor] = token
	}
	return creds
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
