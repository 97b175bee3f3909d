// Package main implements the entry point for the MiniMax generation server,
// which accepts asynchronous image and speech synthesis jobs, paces them
// against the MiniMax API quotas, and lets callers synchronize on all
// outstanding work with a single barrier call.
package main

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/PsychArch/minimax-mcp-tools/internal/config"
	"github.com/PsychArch/minimax-mcp-tools/internal/platform/logger"
	"github.com/PsychArch/minimax-mcp-tools/internal/platform/minimax"
	"github.com/PsychArch/minimax-mcp-tools/internal/ratelimit"
	"github.com/PsychArch/minimax-mcp-tools/internal/service"
	"github.com/PsychArch/minimax-mcp-tools/internal/task"
)

// application holds the wired dependencies for the running server.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	registry *task.Registry
	service  *service.GenerationService
}

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(app.setupRouter()); err != nil {
		app.logger.Error("Server exited with error", "error", err)
	}
}

// initializeApp loads configuration and wires the application components:
// config -> logger -> minimax client -> registry -> scheduler -> service.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"api_host", cfg.MiniMax.APIHost,
		"output_dir", cfg.MiniMax.OutputDir)

	generator, err := minimax.New(minimax.Config{
		APIKey:      cfg.MiniMax.APIKey,
		APIHost:     cfg.MiniMax.APIHost,
		ImageModel:  cfg.MiniMax.ImageModel,
		SpeechModel: cfg.MiniMax.SpeechModel,
	}, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create minimax client: %w", err)
	}

	registry := task.NewRegistry(appLogger)
	scheduler, err := task.NewScheduler(registry, schedulerConfig(cfg.RateLimit), appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	svc, err := service.NewGenerationService(scheduler, generator, cfg.MiniMax.OutputDir, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	return &application{
		config:   cfg,
		logger:   appLogger,
		registry: registry,
		service:  svc,
	}, nil
}

// schedulerConfig maps the loaded rate-limit configuration onto per-category
// limiter configs.
func schedulerConfig(cfg config.RateLimitConfig) task.SchedulerConfig {
	policy := func(limit config.CategoryLimit) ratelimit.AdaptiveConfig {
		return ratelimit.AdaptiveConfig{
			RPM:                limit.RPM,
			Burst:              limit.Burst,
			BackoffFactor:      cfg.BackoffFactor,
			RecoveryFactor:     cfg.RecoveryFactor,
			MaxBackoffExponent: cfg.MaxBackoffExponent,
		}
	}
	return task.SchedulerConfig{
		Limits: map[task.Category]ratelimit.AdaptiveConfig{
			task.CategoryImage:  policy(cfg.Image),
			task.CategorySpeech: policy(cfg.Speech),
		},
	}
}

// cleanup stops background processing: cancels the registry's lifecycle
// context and waits for in-flight tasks to settle.
func (app *application) cleanup() {
	app.logger.Info("waiting for in-flight tasks to settle")
	app.registry.Stop()
}
