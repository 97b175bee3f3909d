package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

// Default adaptive policy parameters.
const (
	DefaultBackoffFactor      = 0.7
	DefaultRecoveryFactor     = 1.05
	DefaultMaxBackoffExponent = 5
)

// AdaptiveConfig holds configuration for an adaptive limiter.
type AdaptiveConfig struct {
	// RPM is the configured requests-per-minute ceiling the limiter
	// recovers toward after a penalty.
	RPM int

	// Burst is the maximum number of instantaneously available tokens.
	Burst int

	// BackoffFactor multiplies the effective rate once per consecutive
	// rate-limit failure. Must be in (0, 1); defaults to 0.7.
	BackoffFactor float64

	// RecoveryFactor multiplies the effective rate on each success once
	// the penalty has cleared. Must be > 1; defaults to 1.05.
	RecoveryFactor float64

	// MaxBackoffExponent caps how many times the backoff factor compounds.
	// Defaults to 5.
	MaxBackoffExponent int
}

func (c *AdaptiveConfig) applyDefaults() {
	if c.BackoffFactor == 0 {
		c.BackoffFactor = DefaultBackoffFactor
	}
	if c.RecoveryFactor == 0 {
		c.RecoveryFactor = DefaultRecoveryFactor
	}
	if c.MaxBackoffExponent == 0 {
		c.MaxBackoffExponent = DefaultMaxBackoffExponent
	}
}

// AdaptiveStatus extends the bucket snapshot with the adaptive policy state.
type AdaptiveStatus struct {
	Status

	// OriginalRPM is the configured ceiling before any penalty.
	OriginalRPM int

	// EffectiveRPM is the current, possibly penalized, rate.
	EffectiveRPM float64

	// ConsecutiveErrors is the number of rate-limit failures not yet
	// offset by successes.
	ConsecutiveErrors int

	// LastErrorAt is when the most recent rate-limit failure was recorded.
	// Zero when the limiter has never been penalized.
	LastErrorAt time.Time
}

// rateLimited is implemented by errors that represent an explicit throttling
// signal from the remote service. Only such errors penalize the limiter;
// validation, network and timeout failures leave it untouched.
type rateLimited interface {
	RateLimited() bool
}

// Adaptive wraps a TokenBucket and adjusts its effective rate from observed
// outcomes: consecutive rate-limit failures shrink it exponentially, and
// sustained success grows it back multiplicatively toward the configured
// ceiling. Backoff is deliberately much faster than recovery — throttling
// must be respected aggressively, while recovering too eagerly would just
// re-trigger it.
type Adaptive struct {
	mu     sync.Mutex
	bucket *TokenBucket
	cfg    AdaptiveConfig

	effectiveRPM      float64
	consecutiveErrors int
	lastErrorAt       time.Time
}

// NewAdaptive creates an adaptive limiter. Zero policy fields take the
// package defaults; RPM and Burst follow the TokenBucket validity rules.
func NewAdaptive(cfg AdaptiveConfig) (*Adaptive, error) {
	cfg.applyDefaults()
	bucket, err := NewTokenBucket(cfg.RPM, cfg.Burst)
	if err != nil {
		return nil, err
	}
	return &Adaptive{
		bucket:       bucket,
		cfg:          cfg,
		effectiveRPM: float64(cfg.RPM),
	}, nil
}

// Acquire blocks until the underlying bucket grants a token or ctx is done.
func (a *Adaptive) Acquire(ctx context.Context) error {
	return a.bucket.Acquire(ctx)
}

// OnSuccess records a successful request. While a penalty is active it only
// pays down the consecutive-error counter; once the counter is back to zero
// each success grows the effective rate by the recovery factor, capped at
// the configured RPM.
func (a *Adaptive) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.consecutiveErrors > 0 {
		a.consecutiveErrors--
		if a.consecutiveErrors > 0 {
			return
		}
	}
	if a.effectiveRPM < float64(a.cfg.RPM) {
		a.effectiveRPM = math.Min(float64(a.cfg.RPM), a.effectiveRPM*a.cfg.RecoveryFactor)
		a.bucket.setRate(a.effectiveRPM)
	}
}

// OnFailure records a failed request. Only errors carrying an explicit
// rate-limit signal (a RateLimited() bool method reporting true anywhere in
// the unwrap chain) tighten the limiter; everything else is ignored.
func (a *Adaptive) OnFailure(err error) {
	var rl rateLimited
	if !errors.As(err, &rl) || !rl.RateLimited() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consecutiveErrors++
	a.lastErrorAt = time.Now()

	exp := a.consecutiveErrors
	if exp > a.cfg.MaxBackoffExponent {
		exp = a.cfg.MaxBackoffExponent
	}
	factor := math.Pow(a.cfg.BackoffFactor, float64(exp))
	a.effectiveRPM = math.Max(1, float64(a.cfg.RPM)*factor)
	a.bucket.setRate(a.effectiveRPM)
	// An in-progress burst must not spend through the pre-penalty
	// allowance either.
	a.bucket.clampTokens(float64(a.cfg.Burst) * factor)
}

// Reset restores the limiter to its initial, non-penalized state and fails
// any queued waiters with ErrLimiterReset.
func (a *Adaptive) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.consecutiveErrors = 0
	a.lastErrorAt = time.Time{}
	a.effectiveRPM = float64(a.cfg.RPM)
	a.bucket.setRate(a.effectiveRPM)
	a.bucket.Reset()
}

// Status returns a snapshot of the bucket and the adaptive policy state.
func (a *Adaptive) Status() AdaptiveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AdaptiveStatus{
		Status:            a.bucket.Status(),
		OriginalRPM:       a.cfg.RPM,
		EffectiveRPM:      a.effectiveRPM,
		ConsecutiveErrors: a.consecutiveErrors,
		LastErrorAt:       a.lastErrorAt,
	}
}
