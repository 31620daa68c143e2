package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef-test")
	t.Setenv("MESSAGING_ENABLED", "false")
	t.Setenv("CACHE_ENABLED", "false")
}

func TestNewDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "noop", cfg.Cache.Driver)
	assert.Equal(t, "noop", cfg.Messaging.Driver)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
	assert.Equal(t, 10*time.Minute, cfg.Orders.CancelWindow)
	assert.Equal(t, "0.01", cfg.Orders.TotalTolerance.String())
	assert.Equal(t, "/metrics", cfg.Observability.PrometheusPath)
}

func TestNewRejectsShortSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTH_JWT_SECRET", "short")

	_, err := New()
	assert.ErrorContains(t, err, "AUTH_JWT_SECRET")
}

func TestNewRequiresSNSTopic(t *testing.T) {
	setRequired(t)
	t.Setenv("MESSAGING_ENABLED", "true")
	t.Setenv("MESSAGING_DRIVER", "sns")
	t.Setenv("SNS_TOPIC_ARN", "")

	_, err := New()
	assert.ErrorContains(t, err, "SNS_TOPIC_ARN")
}

func TestNewNormalizesObservability(t *testing.T) {
	setRequired(t)
	t.Setenv("OBS_LOG_LEVEL", "  DEBUG ")
	t.Setenv("OBS_PROMETHEUS_PATH", "prom")
	t.Setenv("ORDER_CANCEL_WINDOW", "15m")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, "/prom", cfg.Observability.PrometheusPath)
	assert.Equal(t, 15*time.Minute, cfg.Orders.CancelWindow)
}

func TestGetEnvAsStringSlice(t *testing.T) {
	t.Setenv("TEST_BROKERS", " a:1, ,b:2 ")
	assert.Equal(t, []string{"a:1", "b:2"}, getEnvAsStringSlice("TEST_BROKERS", nil))

	t.Setenv("TEST_BROKERS", " , ")
	assert.Equal(t, []string{"x"}, getEnvAsStringSlice("TEST_BROKERS", []string{"x"}))
}
