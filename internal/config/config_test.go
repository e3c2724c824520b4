package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "POSTGRES_DSN", "POSTGRES_MAX_CONNS", "POSTGRES_MIN_CONNS", "REDIS_ADDR", "KAFKA_BROKERS", "SERVICE_NAME", "APP_ENV", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 8, cfg.PostgresMaxConns)
	assert.Equal(t, 1, cfg.PostgresMinConns)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "shopd-api", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.Env)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092 ,,")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("POSTGRES_MAX_CONNS", "20")
	t.Setenv("POSTGRES_MIN_CONNS", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, 20, cfg.PostgresMaxConns)
	assert.Equal(t, 1, cfg.PostgresMinConns, "garbage falls back to the default")
}
