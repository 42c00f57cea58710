package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "http://localhost:8000", cfg.PredictorBaseURL)
	assert.Equal(t, time.Duration(0), cfg.PredictorRequestTimeout)
	assert.False(t, cfg.AutoExplain)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, 1024, cfg.SessionCacheSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PREDICTOR_BASE_URL", "https://risk.example.org/")
	t.Setenv("PREDICTOR_REQUEST_TIMEOUT", "5s")
	t.Setenv("AUTO_EXPLAIN", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("REDIS_HOST", "cache")

	cfg := Load()

	assert.Equal(t, "https://risk.example.org", cfg.PredictorBaseURL)
	assert.Equal(t, 5*time.Second, cfg.PredictorRequestTimeout)
	assert.True(t, cfg.AutoExplain)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.RedisEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing base url", func(c *Config) { c.PredictorBaseURL = "" }, "predictor base URL is required"},
		{"relative base url", func(c *Config) { c.PredictorBaseURL = "localhost" }, "invalid predictor base URL"},
		{"client id without token url", func(c *Config) { c.PredictorClientID = "ui" }, "token URL is required"},
		{"empty session cache", func(c *Config) { c.SessionCacheSize = 0 }, "invalid session cache size"},
		{"negative timeout", func(c *Config) { c.PredictorRequestTimeout = -time.Second }, "invalid predictor request timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "host=localhost user=synaptica password=synaptica123 dbname=oncorisk port=5432 sslmode=disable", cfg.PostgresDSN())
}

func TestReadConfigFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		v := viper.New()
		v.SetConfigName("oncorisk")
		v.SetConfigType("yaml")
		v.AddConfigPath(t.TempDir())
		assert.NoError(t, readConfigFile(v))
	})

	t.Run("malformed file is reported", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "oncorisk.yaml"), []byte("predictor_base_url: [unterminated\n"), 0o644))

		v := viper.New()
		v.SetConfigName("oncorisk")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		err := readConfigFile(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("valid file is applied", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "oncorisk.yaml"), []byte("predictor_base_url: https://risk.example.org\n"), 0o644))

		v := viper.New()
		setDefaults(v)
		v.SetConfigName("oncorisk")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		require.NoError(t, readConfigFile(v))
		assert.Equal(t, "https://risk.example.org", fromViper(v).PredictorBaseURL)
	})
}
