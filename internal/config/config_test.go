package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "GO_ENV", "STORE_DRIVER", "DATABASE_URL", "BOLT_PATH", "JWT_SECRET", "CORS_ORIGINS",
		"ADJUST_MAX_ATTEMPTS", "ADJUST_BACKOFF_MIN_MS", "ADJUST_BACKOFF_MAX_MS", "ADJUST_TIMEOUT_MS",
		"LEDGER_APPEND_TIMEOUT_MS", "LOW_STOCK_TOPIC", "NOTIFY_WORKERS", "NOTIFY_TIMEOUT_MS",
		"RECONCILE_CRON", "NODE_ID", "LOG_MODE", "LOG_FILE",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_SSLMODE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Contains(t, cfg.DatabaseURL, "host=localhost")
	assert.Equal(t, 5, cfg.AdjustMaxAttempts)
	assert.Equal(t, 5*time.Millisecond, cfg.AdjustBackoffMin)
	assert.Equal(t, 50*time.Millisecond, cfg.AdjustBackoffMax)
	assert.Equal(t, 3*time.Second, cfg.AdjustTimeout)
	assert.Equal(t, 2*time.Second, cfg.LedgerAppendTimeout)
	assert.Equal(t, 8, cfg.NotifyWorkers)
	assert.Equal(t, "@every 10m", cfg.ReconcileCron)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, int64(1), cfg.NodeID)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", ":9090")
	t.Setenv("STORE_DRIVER", "BOLT")
	t.Setenv("BOLT_PATH", "/tmp/x.db")
	t.Setenv("ADJUST_MAX_ATTEMPTS", "3")
	t.Setenv("ADJUST_BACKOFF_MIN_MS", "0")
	t.Setenv("ADJUST_BACKOFF_MAX_MS", "0")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, StoreDriverBolt, cfg.StoreDriver)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.AdjustMaxAttempts)
	assert.Equal(t, time.Duration(0), cfg.AdjustBackoffMax)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":       {"STORE_DRIVER": "dynamo"},
		"attempts":     {"ADJUST_MAX_ATTEMPTS": "0"},
		"not a number": {"ADJUST_MAX_ATTEMPTS": "five"},
		"backoff":      {"ADJUST_BACKOFF_MIN_MS": "100", "ADJUST_BACKOFF_MAX_MS": "10"},
		"node":         {"NODE_ID": "2048"},
		"workers":      {"NOTIFY_WORKERS": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
