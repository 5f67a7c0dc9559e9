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

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.ServerAddress)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, 100, cfg.LocationBatchSize)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.CacheStaleAfter)
	assert.Equal(t, 0, cfg.MaxMutationAttempts)
	assert.False(t, cfg.RefreshCacheOnSync)
	assert.Equal(t, filepath.Join(dir, "data.db"), cfg.DataPath)
	assert.Equal(t, filepath.Join(dir, "kv"), cfg.KVPath)
	assert.NotEmpty(t, cfg.DeviceID)
	assert.True(t, cfg.IsLocal())
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL())
}

func TestLoad_DeviceIDIsStable(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)

	assert.Equal(t, first.DeviceID, second.DeviceID)
	data, err := os.ReadFile(filepath.Join(dir, "device_id"))
	require.NoError(t, err)
	assert.Equal(t, first.DeviceID, string(data))
}

func TestLoad_FromEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("SERVER_ADDRESS", "api.example.com")
	t.Setenv("ENABLE_TLS", "true")
	t.Setenv("STORAGE_BACKEND", "kv")
	t.Setenv("MAX_MUTATION_ATTEMPTS", "5")
	t.Setenv("DEVICE_ID", "tablet-7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BaseURL())
	assert.Equal(t, "kv", cfg.StorageBackend)
	assert.Equal(t, 5, cfg.MaxMutationAttempts)
	assert.Equal(t, "tablet-7", cfg.DeviceID)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown backend", key: "STORAGE_BACKEND", value: "postgres"},
		{name: "batch above upload limit", key: "LOCATION_BATCH_SIZE", value: "500"},
		{name: "zero batch", key: "LOCATION_BATCH_SIZE", value: "0"},
		{name: "negative attempts", key: "MAX_MUTATION_ATTEMPTS", value: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Setenv("CONFIG_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
