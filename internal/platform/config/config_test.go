package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"FLEETOPS_ADDR", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "HOS_DEFAULT_RULESET", "HOS_LEDGER_TX_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "us-interstate", cfg.HOS.DefaultRuleSet)
	assert.Equal(t, 5*time.Second, cfg.HOS.LedgerTxTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("FLEETOPS_ENV", "production")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("HOS_DRIVER_LOCK_TTL", "30s")
	t.Setenv("HOS_OUTBOX_BATCH_SIZE", "not-a-number")

	cfg := FromEnv()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.HOS.DriverLockTTL)
	assert.Equal(t, 100, cfg.HOS.OutboxBatchSize, "unparsable values fall back")
}
