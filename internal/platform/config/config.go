package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	xstrings "fleetops/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	HOS         HOSConfig
}

// RedisConfig configures the distributed driver lock. An empty URL keeps
// locking in-process.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit sink. No brokers means audit events stay
// in the database outbox (or memory).
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	Partitions int32
}

// HOSConfig holds the compliance engine settings.
type HOSConfig struct {
	RuleSetFile     string
	DefaultRuleSet  string
	HomeTerminalTZ  string
	LedgerTxTimeout time.Duration
	DriverLockTTL   time.Duration
	MaxClockSkew    time.Duration
	OutboxInterval  time.Duration
	OutboxBatchSize int
	RuleSetReload   time.Duration
}

// IsProduction reports whether the service runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envOr("FLEETOPS_ADDR", ":8080"),
		Environment: envOr("FLEETOPS_ENV", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    xstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "hos.audit"),
			Partitions: int32(envInt("KAFKA_AUDIT_PARTITIONS", 6)),
		},
		HOS: HOSConfig{
			RuleSetFile:     os.Getenv("HOS_RULESET_FILE"),
			DefaultRuleSet:  envOr("HOS_DEFAULT_RULESET", "us-interstate"),
			HomeTerminalTZ:  envOr("HOS_HOME_TERMINAL_TZ", "UTC"),
			LedgerTxTimeout: envDuration("HOS_LEDGER_TX_TIMEOUT", 5*time.Second),
			DriverLockTTL:   envDuration("HOS_DRIVER_LOCK_TTL", 10*time.Second),
			MaxClockSkew:    envDuration("HOS_MAX_CLOCK_SKEW", 5*time.Minute),
			OutboxInterval:  envDuration("HOS_OUTBOX_INTERVAL", time.Second),
			OutboxBatchSize: envInt("HOS_OUTBOX_BATCH_SIZE", 100),
			RuleSetReload:   envDuration("HOS_RULESET_RELOAD_INTERVAL", 0),
		},
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
