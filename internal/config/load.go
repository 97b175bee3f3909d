package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables (MINIMAX_API_KEY,
// MINIMAX_SERVER_PORT, MINIMAX_IMAGE_RPM, ...) and an optional config.yaml
// in the working directory. Environment variables take precedence over file
// values. Returns a validated Config or an error describing what failed.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("MINIMAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// setDefaults applies the stock quotas and adaptive policy parameters.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("minimax.api_host", "https://api.minimax.chat")
	v.SetDefault("minimax.image_model", "image-01")
	v.SetDefault("minimax.speech_model", "speech-02-hd")
	v.SetDefault("minimax.output_dir", "output")

	v.SetDefault("rate_limit.image.rpm", 10)
	v.SetDefault("rate_limit.image.burst", 3)
	v.SetDefault("rate_limit.speech.rpm", 20)
	v.SetDefault("rate_limit.speech.burst", 5)
	v.SetDefault("rate_limit.backoff_factor", 0.7)
	v.SetDefault("rate_limit.recovery_factor", 1.05)
	v.SetDefault("rate_limit.max_backoff_exponent", 5)
}

// bindEnvKeys binds each config key to its canonical environment variable.
func bindEnvKeys(v *viper.Viper) {
	for key, envVar := range map[string]string{
		"server.port":                     "MINIMAX_SERVER_PORT",
		"server.log_level":                "MINIMAX_LOG_LEVEL",
		"minimax.api_key":                 "MINIMAX_API_KEY",
		"minimax.api_host":                "MINIMAX_API_HOST",
		"minimax.image_model":             "MINIMAX_IMAGE_MODEL",
		"minimax.speech_model":            "MINIMAX_SPEECH_MODEL",
		"minimax.output_dir":              "MINIMAX_OUTPUT_DIR",
		"rate_limit.image.rpm":            "MINIMAX_IMAGE_RPM",
		"rate_limit.image.burst":          "MINIMAX_IMAGE_BURST",
		"rate_limit.speech.rpm":           "MINIMAX_SPEECH_RPM",
		"rate_limit.speech.burst":         "MINIMAX_SPEECH_BURST",
		"rate_limit.backoff_factor":       "MINIMAX_BACKOFF_FACTOR",
		"rate_limit.recovery_factor":      "MINIMAX_RECOVERY_FACTOR",
		"rate_limit.max_backoff_exponent": "MINIMAX_MAX_BACKOFF_EXPONENT",
	} {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(key, envVar)
	}
}
