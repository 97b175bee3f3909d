package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// throttledError simulates an explicit rate-limit signal from the remote
// service.
type throttledError struct{}

func (throttledError) Error() string     { return "remote rate limit reached" }
func (throttledError) RateLimited() bool { return true }

func newTestAdaptive(t *testing.T, rpm, burst int) *Adaptive {
	t.Helper()
	limiter, err := NewAdaptive(AdaptiveConfig{RPM: rpm, Burst: burst})
	require.NoError(t, err)
	return limiter
}

func TestNewAdaptive(t *testing.T) {
	t.Parallel()

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()

		limiter := newTestAdaptive(t, 100, 5)
		limiter.OnFailure(throttledError{})

		status := limiter.Status()
		assert.InDelta(t, 100*DefaultBackoffFactor, status.EffectiveRPM, 0.001)
	})

	t.Run("invalid bucket configuration rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewAdaptive(AdaptiveConfig{RPM: 0, Burst: 5})
		assert.Error(t, err)
	})
}

func TestAdaptive_BackoffFormula(t *testing.T) {
	t.Parallel()

	limiter := newTestAdaptive(t, 100, 5)

	for k := 1; k <= 8; k++ {
		limiter.OnFailure(throttledError{})

		exp := math.Min(float64(k), float64(DefaultMaxBackoffExponent))
		want := math.Max(1, 100*math.Pow(DefaultBackoffFactor, exp))
		status := limiter.Status()
		assert.InDelta(t, want, status.EffectiveRPM, 0.001, "after %d failures", k)
		assert.Equal(t, k, status.ConsecutiveErrors)
	}
}

func TestAdaptive_EffectiveRPMFlooredAtOne(t *testing.T) {
	t.Parallel()

	limiter := newTestAdaptive(t, 1, 1)
	for i := 0; i < 10; i++ {
		limiter.OnFailure(throttledError{})
	}
	assert.Equal(t, float64(1), limiter.Status().EffectiveRPM)
}

func TestAdaptive_NonRateLimitErrorsIgnored(t *testing.T) {
	t.Parallel()

	limiter := newTestAdaptive(t, 100, 5)

	limiter.OnFailure(errors.New("network unreachable"))
	limiter.OnFailure(fmt.Errorf("wrapped: %w", errors.New("validation failed")))
	limiter.OnFailure(nil)

	status := limiter.Status()
	assert.Equal(t, 0, status.ConsecutiveErrors)
	assert.Equal(t, float64(100), status.EffectiveRPM)
}

func TestAdaptive_WrappedRateLimitErrorDetected(t *testing.T) {
	t.Parallel()

	limiter := newTestAdaptive(t, 100, 5)
	limiter.OnFailure(fmt.Errorf("calling remote: %w", throttledError{}))

	assert.Equal(t, 1, limiter.Status().ConsecutiveErrors)
}

func TestAdaptive_SuccessPaysDownPenaltyBeforeRecovering(t *testing.T) {
	t.Parallel()

	limiter := newTestAdaptive(t, 100, 5)
	for i := 0; i < 3; i++ {
		limiter.OnFailure(throttledError{})
	}
	penalized := limiter.Status().EffectiveRPM

	// First two successes only pay down the counter; the rate stays put.
	limiter.OnSuccess()
	status := limiter.Status()
	assert.Equal(t, 2, status.ConsecutiveErrors)
	assert.InDelta(t, penalized, status.EffectiveRPM, 0.001)

	limiter.OnSuccess()
	status = limiter.Status()
	assert.Equal(t, 1, status.ConsecutiveErrors)
	assert.InDelta(t, penalized, status.EffectiveRPM, 0.001)

	// The success that clears the counter starts recovery.
	limiter.OnSuccess()
	status = limiter.Status()
	assert.Equal(t, 0, status.ConsecutiveErrors)
	assert.InDelta(t, penalized*DefaultRecoveryFactor, status.EffectiveRPM, 0.001)
}

func TestAdaptive_RecoveryCappedAtOriginal(t *testing.T) {
	t.Parallel()

	limiter := newTestAdaptive(t, 100, 5)
	limiter.OnFailure(throttledError{})
	limiter.OnSuccess() // clears the penalty, starts recovery

	for i := 0; i < 50; i++ {
		limiter.OnSuccess()
	}
	assert.Equal(t, float64(100), limiter.Status().EffectiveRPM)
}

func TestAdaptive_FailureClampsAvailableTokens(t *testing.T) {
	t.Parallel()

	limiter := newTestAdaptive(t, 600, 10)
	require.Equal(t, float64(10), limiter.Status().AvailableTokens)

	limiter.OnFailure(throttledError{})

	// The untouched burst must not survive the penalty: tokens are capped
	// at burst * backoff^1.
	assert.LessOrEqual(t, limiter.Status().AvailableTokens, 10*DefaultBackoffFactor+0.01)
}

func TestAdaptive_AcquireSlowsAfterPenalty(t *testing.T) {
	t.Parallel()

	// 600 RPM = 100ms per token.
	limiter := newTestAdaptive(t, 600, 1)
	require.NoError(t, limiter.Acquire(context.Background()))

	start := time.Now()
	require.NoError(t, limiter.Acquire(context.Background()))
	before := time.Since(start)

	// Two throttling signals: effective rate 600*0.49 = 294 RPM, roughly
	// 204ms per token.
	limiter.OnFailure(throttledError{})
	limiter.OnFailure(throttledError{})

	start = time.Now()
	require.NoError(t, limiter.Acquire(context.Background()))
	after := time.Since(start)

	assert.Greater(t, after, before, "acquire must take longer after a penalty")
	assert.GreaterOrEqual(t, after, 150*time.Millisecond)
}

func TestAdaptive_ResetRestoresInitialState(t *testing.T) {
	t.Parallel()

	limiter := newTestAdaptive(t, 100, 5)
	for i := 0; i < 4; i++ {
		limiter.OnFailure(throttledError{})
	}

	limiter.Reset()

	status := limiter.Status()
	assert.Equal(t, 0, status.ConsecutiveErrors)
	assert.Equal(t, float64(100), status.EffectiveRPM)
	assert.Equal(t, float64(5), status.AvailableTokens)
}
