// Package service orchestrates the application's use cases: submitting
// rate-limited generation work, synchronizing on all outstanding tasks, and
// persisting generated assets to disk.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/PsychArch/minimax-mcp-tools/internal/generation"
	"github.com/PsychArch/minimax-mcp-tools/internal/ratelimit"
	"github.com/PsychArch/minimax-mcp-tools/internal/task"
)

// ImageParams describes one image-generation submission.
type ImageParams struct {
	Prompt      string
	AspectRatio string
	Count       int

	// TaskID optionally pins the task id; one is generated when empty.
	TaskID string
}

// SpeechParams describes one text-to-speech submission.
type SpeechParams struct {
	Text    string
	VoiceID string
	Speed   float64

	// TaskID optionally pins the task id; one is generated when empty.
	TaskID string
}

// GenerationService submits remote generation work through the category
// scheduler and writes the resulting assets into the output directory. The
// value recorded as a successful task's result is the list of written file
// paths.
type GenerationService struct {
	scheduler *task.Scheduler
	generator generation.Generator
	outputDir string
	logger    *slog.Logger
}

// NewGenerationService creates the service and ensures the output directory
// exists.
func NewGenerationService(
	scheduler *task.Scheduler,
	generator generation.Generator,
	outputDir string,
	logger *slog.Logger,
) (*GenerationService, error) {
	if scheduler == nil {
		return nil, errors.New("scheduler cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %q: %w", outputDir, err)
	}
	return &GenerationService{
		scheduler: scheduler,
		generator: generator,
		outputDir: outputDir,
		logger:    logger.With("component", "generation_service"),
	}, nil
}

// SubmitImage registers image-generation work and returns its task id
// immediately. The work runs once the image limiter admits it; on success
// the task result is the list of written image paths.
func (s *GenerationService) SubmitImage(params ImageParams) (string, error) {
	if params.Prompt == "" {
		return "", generation.NewError(generation.KindValidation, "image prompt cannot be empty", nil)
	}
	id := params.TaskID
	if id == "" {
		id = uuid.New().String()
	}

	fn := func(ctx context.Context) (any, error) {
		result, err := s.generator.GenerateImage(ctx, generation.ImageRequest{
			Prompt:      params.Prompt,
			AspectRatio: params.AspectRatio,
			Count:       params.Count,
		})
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, len(result.Images))
		for i, data := range result.Images {
			name := fmt.Sprintf("image-%s-%d.%s", id, i+1, result.Format)
			path, err := s.writeFile(name, data)
			if err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
		return paths, nil
	}

	return s.scheduler.Submit(task.CategoryImage, id, fn)
}

// SubmitSpeech registers text-to-speech work and returns its task id
// immediately. On success the task result is the written audio path.
func (s *GenerationService) SubmitSpeech(params SpeechParams) (string, error) {
	if params.Text == "" {
		return "", generation.NewError(generation.KindValidation, "speech text cannot be empty", nil)
	}
	id := params.TaskID
	if id == "" {
		id = uuid.New().String()
	}

	fn := func(ctx context.Context) (any, error) {
		result, err := s.generator.GenerateSpeech(ctx, generation.SpeechRequest{
			Text:    params.Text,
			VoiceID: params.VoiceID,
			Speed:   params.Speed,
		})
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("speech-%s.%s", id, result.Format)
		return s.writeFile(name, result.Audio)
	}

	return s.scheduler.Submit(task.CategorySpeech, id, fn)
}

// Barrier waits for every in-flight task, collects all completed results
// since the last clear, and clears them so memory does not grow across
// batches.
func (s *GenerationService) Barrier(ctx context.Context) (*task.BarrierResult, error) {
	registry := s.scheduler.Registry()
	result, err := registry.Barrier(ctx)
	if err != nil {
		return nil, err
	}
	cleared := registry.ClearCompleted()
	s.logger.Debug("barrier collected", "completed", result.Completed, "cleared", cleared)
	return result, nil
}

// Status reports the state of one task id.
func (s *GenerationService) Status(id string) (task.Status, *task.Result) {
	return s.scheduler.Registry().Status(id)
}

// Metrics returns the per-category counters, limiter snapshots and registry
// stats.
func (s *GenerationService) Metrics() (map[task.Category]task.Metrics, map[task.Category]ratelimit.AdaptiveStatus, task.Stats) {
	return s.scheduler.MetricsSnapshot(), s.scheduler.LimiterStatus(), s.scheduler.Registry().Stats()
}

// ResetMetrics zeroes all counters and restores every limiter to its
// initial state.
func (s *GenerationService) ResetMetrics() {
	s.scheduler.ResetMetrics()
}

func (s *GenerationService) writeFile(name string, data []byte) (string, error) {
	path := filepath.Join(s.outputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %q: %w", path, err)
	}
	return path, nil
}
