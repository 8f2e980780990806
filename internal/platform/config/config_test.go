package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
	assert.Equal(t, "@hourly", cfg.Scheduler.OverdueSpec)
	assert.Equal(t, "@every 6h", cfg.Scheduler.ExpirySpec)
	assert.Equal(t, "@daily", cfg.Scheduler.ReminderSpec)
	assert.Equal(t, "qualify.audit", cfg.Kafka.AuditTopic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5, cfg.Signature.MaxFailures)
	assert.Equal(t, 10, cfg.RateLimit.LoginLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.LoginWindow)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"QUALIFY_ADDR":                 ":9090",
		"QUALIFY_KAFKA_BROKERS":        "kafka-1:9092,kafka-2:9092",
		"QUALIFY_SIGNATURE_LOCKOUT":    "1h",
		"QUALIFY_DATABASE_URL":         "postgres://qualify@db/qualify?sslmode=disable",
		"QUALIFY_SCHEDULER_REMINDER":   "0 7 * * *",
		"QUALIFY_AUDIT_RETRY_INTERVAL": "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Hour, cfg.Signature.Lockout)
	assert.Equal(t, "0 7 * * *", cfg.Scheduler.ReminderSpec)
	assert.Equal(t, 250*time.Millisecond, cfg.Audit.RetryInterval)
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Run("malformed duration", func(t *testing.T) {
		_, err := LoadFrom(map[string]string{"QUALIFY_SIGNATURE_WINDOW": "soon"})
		assert.Error(t, err)
	})

	t.Run("zero failure threshold", func(t *testing.T) {
		_, err := LoadFrom(map[string]string{"QUALIFY_SIGNATURE_MAX_FAILURES": "0"})
		assert.Error(t, err)
	})

	t.Run("negative login limit", func(t *testing.T) {
		_, err := LoadFrom(map[string]string{"QUALIFY_LOGIN_RATE_LIMIT": "-1"})
		assert.Error(t, err)
	})
}
