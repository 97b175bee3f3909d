// Package config loads and validates application configuration. The loaded
// Config value is constructed once at startup and passed explicitly into the
// components that need it; there is no global mutable settings instance.
package config

// Config holds all application configuration, grouped by concern.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	MiniMax   MiniMaxConfig   `mapstructure:"minimax" validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// MiniMaxConfig contains the remote API settings.
type MiniMaxConfig struct {
	APIKey      string `mapstructure:"api_key" validate:"required"`
	APIHost     string `mapstructure:"api_host" validate:"required,url"`
	ImageModel  string `mapstructure:"image_model" validate:"required"`
	SpeechModel string `mapstructure:"speech_model" validate:"required"`

	// OutputDir is where generated images and audio files are written.
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// CategoryLimit configures one category's rate limiter.
type CategoryLimit struct {
	RPM   int `mapstructure:"rpm" validate:"required,gte=1"`
	Burst int `mapstructure:"burst" validate:"required,gte=1"`
}

// RateLimitConfig contains the per-category quotas and the shared adaptive
// policy parameters.
type RateLimitConfig struct {
	Image  CategoryLimit `mapstructure:"image" validate:"required"`
	Speech CategoryLimit `mapstructure:"speech" validate:"required"`

	BackoffFactor      float64 `mapstructure:"backoff_factor" validate:"required,gt=0,lt=1"`
	RecoveryFactor     float64 `mapstructure:"recovery_factor" validate:"required,gt=1"`
	MaxBackoffExponent int     `mapstructure:"max_backoff_exponent" validate:"required,gte=1"`
}
