package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Load requires MINIMAX_API_KEY; every test sets at least that. t.Setenv
// scopes the variables to the test, so these cannot run in parallel.

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MINIMAX_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)

	assert.Equal(t, "test-key", cfg.MiniMax.APIKey)
	assert.Equal(t, "https://api.minimax.chat", cfg.MiniMax.APIHost)
	assert.Equal(t, "image-01", cfg.MiniMax.ImageModel)
	assert.Equal(t, "speech-02-hd", cfg.MiniMax.SpeechModel)
	assert.Equal(t, "output", cfg.MiniMax.OutputDir)

	assert.Equal(t, CategoryLimit{RPM: 10, Burst: 3}, cfg.RateLimit.Image)
	assert.Equal(t, CategoryLimit{RPM: 20, Burst: 5}, cfg.RateLimit.Speech)
	assert.InDelta(t, 0.7, cfg.RateLimit.BackoffFactor, 0.0001)
	assert.InDelta(t, 1.05, cfg.RateLimit.RecoveryFactor, 0.0001)
	assert.Equal(t, 5, cfg.RateLimit.MaxBackoffExponent)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MINIMAX_API_KEY", "test-key")
	t.Setenv("MINIMAX_SERVER_PORT", "9090")
	t.Setenv("MINIMAX_LOG_LEVEL", "debug")
	t.Setenv("MINIMAX_API_HOST", "https://api.minimaxi.chat")
	t.Setenv("MINIMAX_IMAGE_RPM", "30")
	t.Setenv("MINIMAX_IMAGE_BURST", "6")
	t.Setenv("MINIMAX_SPEECH_RPM", "60")
	t.Setenv("MINIMAX_BACKOFF_FACTOR", "0.5")
	t.Setenv("MINIMAX_MAX_BACKOFF_EXPONENT", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "https://api.minimaxi.chat", cfg.MiniMax.APIHost)
	assert.Equal(t, CategoryLimit{RPM: 30, Burst: 6}, cfg.RateLimit.Image)
	assert.Equal(t, 60, cfg.RateLimit.Speech.RPM)
	assert.Equal(t, 5, cfg.RateLimit.Speech.Burst, "untouched keys keep their defaults")
	assert.InDelta(t, 0.5, cfg.RateLimit.BackoffFactor, 0.0001)
	assert.Equal(t, 8, cfg.RateLimit.MaxBackoffExponent)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	// Explicitly blank in case the surrounding environment carries one.
	t.Setenv("MINIMAX_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}

func TestLoad_ValidationRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{name: "port out of range", envVar: "MINIMAX_SERVER_PORT", value: "70000"},
		{name: "unknown log level", envVar: "MINIMAX_LOG_LEVEL", value: "verbose"},
		{name: "api host not a url", envVar: "MINIMAX_API_HOST", value: "not a url"},
		{name: "zero image rpm", envVar: "MINIMAX_IMAGE_RPM", value: "0"},
		{name: "backoff factor above one", envVar: "MINIMAX_BACKOFF_FACTOR", value: "1.5"},
		{name: "recovery factor below one", envVar: "MINIMAX_RECOVERY_FACTOR", value: "0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MINIMAX_API_KEY", "test-key")
			t.Setenv(tt.envVar, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validating config")
		})
	}
}
