package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "https://openapi.koreainvestment.com:9443", c.KIS.BaseURL)
	assert.Equal(t, 12*time.Second, c.KIS.RequestTimeout)
	assert.Equal(t, 100, c.KIS.BarLookbackDays)
	assert.Equal(t, 2, c.Enrich.Workers)
	assert.Equal(t, 20*time.Second, c.Enrich.QuoteTTL)
	assert.Equal(t, 24*time.Hour, c.Enrich.FundamentalsTTL)
	assert.Equal(t, 12, c.Enrich.MaxCandidates)
	assert.Equal(t, "data/universe", c.Universe.Dir)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "stockpull.candidates", c.Kafka.CandidatesTopic)
	assert.False(t, c.Kafka.Enabled)
	assert.False(t, c.Credentialed())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
kis:
  app_key: key
  app_secret: secret
  pace_delay: 0s
enrich:
  workers: 4
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, time.Duration(0), c.KIS.PaceDelay)
	assert.Equal(t, 4, c.Enrich.Workers)
	// untouched keys keep defaults
	assert.Equal(t, 12*time.Second, c.KIS.RequestTimeout)
	assert.True(t, c.Credentialed())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad environment": "environment: moon\n",
		"zero workers":    "enrich:\n  workers: 0\n",
		"bad base url":    "kis:\n  base_url: not a url\n",
		"kafka brokers":   "kafka:\n  enabled: true\n",
		"short lookback":  "kis:\n  bar_lookback_days: 30\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"KIS_APP_KEY":    " key ",
		"KIS_APP_SECRET": "secret",
		"KAFKA_BROKERS":  "a:9092, b:9092,",
		"REDIS_ADDR":     "redis:6379",
		"ENRICH_WORKERS": "3",
		"UNIVERSE_DIR":   "/srv/universe",
	}
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.Equal(t, "key", c.KIS.AppKey)
	assert.True(t, c.Credentialed())
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, 3, c.Enrich.Workers)
	assert.Equal(t, "/srv/universe", c.Universe.Dir)
	require.NoError(t, c.Validate())

	env = map[string]string{"ENRICH_WORKERS": "many"}
	require.Error(t, c.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("KIS_APP_KEY", "k")
	t.Setenv("KIS_APP_SECRET", "s")
	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.True(t, c.Credentialed())
}
