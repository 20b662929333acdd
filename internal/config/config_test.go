package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8090", cfg.RunAddr)
	assert.Equal(t, "http://localhost:3000", cfg.BackendAPIBase)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "fetchcart_state.json", cfg.StateFileName)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.Equal(t, "fetchcart", cfg.SnapshotNamespace)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
	assert.Equal(t, 16, cfg.ChannelCapacity)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "localhost:9999")
	t.Setenv("BACKEND_URL", "https://api.fetchcart.example")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SNAPSHOT_NAMESPACE", "fetchcart_staging")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:9999", cfg.RunAddr)
	assert.Equal(t, "https://api.fetchcart.example", cfg.BackendAPIBase)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "fetchcart_staging", cfg.SnapshotNamespace)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestValidationRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad run address", key: "SERVER_ADDRESS", value: "not a host port"},
		{name: "bad backend url", key: "BACKEND_URL", value: "::definitely-not-a-url"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "verbose"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv(test.key, test.value)

			_, err := New(WithDisableFlagsParsing(true))

			assert.Error(t, err)
		})
	}
}
