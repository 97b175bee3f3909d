package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PsychArch/minimax-mcp-tools/internal/ratelimit"
)

// Metrics holds per-category request counters. Counters only grow; they are
// zeroed solely by an explicit ResetMetrics call.
type Metrics struct {
	Requests  int64
	Successes int64
	Errors    int64
}

// SchedulerConfig maps each category to its adaptive limiter configuration.
type SchedulerConfig struct {
	Limits map[Category]ratelimit.AdaptiveConfig
}

// DefaultSchedulerConfig returns the stock MiniMax quotas: 10 RPM with a
// burst of 3 for images, 20 RPM with a burst of 5 for speech.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Limits: map[Category]ratelimit.AdaptiveConfig{
			CategoryImage:  {RPM: 10, Burst: 3},
			CategorySpeech: {RPM: 20, Burst: 5},
		},
	}
}

// Scheduler is the public submission entry point. It wraps each unit of
// work so execution is gated through its category's adaptive limiter, and
// feeds the limiter the outcome: success pays down any penalty, an explicit
// rate-limit failure deepens it. Categories are fully independent — a
// saturated image queue cannot starve speech submissions.
type Scheduler struct {
	registry *Registry
	limiters map[Category]*ratelimit.Adaptive
	logger   *slog.Logger

	mu      sync.Mutex
	metrics map[Category]*Metrics
}

// NewScheduler creates a scheduler with one adaptive limiter per configured
// category.
func NewScheduler(registry *Registry, cfg SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	limiters := make(map[Category]*ratelimit.Adaptive, len(cfg.Limits))
	metrics := make(map[Category]*Metrics, len(cfg.Limits))
	for category, limitCfg := range cfg.Limits {
		limiter, err := ratelimit.NewAdaptive(limitCfg)
		if err != nil {
			return nil, fmt.Errorf("limiter for category %q: %w", category, err)
		}
		limiters[category] = limiter
		metrics[category] = &Metrics{}
	}
	return &Scheduler{
		registry: registry,
		limiters: limiters,
		metrics:  metrics,
		logger:   logger.With("component", "scheduler"),
	}, nil
}

// Registry exposes the underlying task registry for barrier and status
// queries.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Submit registers fn under the given category and returns its task id
// immediately. The work first acquires a token from the category's limiter,
// then runs; the outcome is reported to the limiter and the category
// counters before the registry records it. A category without a configured
// limiter is submitted unpaced.
func (s *Scheduler) Submit(category Category, id string, fn WorkFunc) (string, error) {
	limiter, ok := s.limiters[category]
	if !ok {
		return s.registry.Submit(category, id, fn)
	}

	wrapped := func(ctx context.Context) (any, error) {
		if err := limiter.Acquire(ctx); err != nil {
			// Never admitted, so no request was made; the counters
			// track traffic that actually reached the service.
			return nil, fmt.Errorf("acquiring %s rate limit token: %w", category, err)
		}
		s.count(category, func(m *Metrics) { m.Requests++ })

		value, err := fn(ctx)
		if err != nil {
			s.count(category, func(m *Metrics) { m.Errors++ })
			limiter.OnFailure(err)
			return nil, err
		}
		s.count(category, func(m *Metrics) { m.Successes++ })
		limiter.OnSuccess()
		return value, nil
	}

	return s.registry.Submit(category, id, wrapped)
}

// LimiterStatus returns a snapshot of every category's limiter.
func (s *Scheduler) LimiterStatus() map[Category]ratelimit.AdaptiveStatus {
	out := make(map[Category]ratelimit.AdaptiveStatus, len(s.limiters))
	for category, limiter := range s.limiters {
		out[category] = limiter.Status()
	}
	return out
}

// MetricsSnapshot returns a copy of every category's counters.
func (s *Scheduler) MetricsSnapshot() map[Category]Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Category]Metrics, len(s.metrics))
	for category, m := range s.metrics {
		out[category] = *m
	}
	return out
}

// ResetMetrics zeroes all counters and restores every limiter to its
// initial, non-penalized state. Waiters queued on a limiter are failed with
// ratelimit.ErrLimiterReset.
func (s *Scheduler) ResetMetrics() {
	s.mu.Lock()
	for category := range s.metrics {
		s.metrics[category] = &Metrics{}
	}
	s.mu.Unlock()
	for _, limiter := range s.limiters {
		limiter.Reset()
	}
	s.logger.Info("metrics and limiters reset")
}

func (s *Scheduler) count(category Category, update func(*Metrics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.metrics[category]; ok {
		update(m)
	}
}
