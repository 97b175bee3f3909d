package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Common errors returned by the ratelimit package
var (
	// ErrLimiterReset is returned to queued waiters when Reset is called.
	// Reset is an operational action, not a graceful drain; callers must
	// treat this as a failed acquisition.
	ErrLimiterReset = errors.New("rate limiter reset while waiting for a token")
)

// Status is a read-only snapshot of a token bucket's state.
type Status struct {
	// RPM is the current requests-per-minute rate of the bucket. For an
	// adaptive limiter this is the effective (possibly penalized) rate.
	RPM float64

	// Burst is the maximum number of instantaneously available tokens.
	Burst int

	// AvailableTokens is the token count after refilling at snapshot time.
	AvailableTokens float64

	// QueueLength is the number of callers waiting for a token.
	QueueLength int
}

// waiter represents one caller blocked in Acquire. The channel is buffered
// so the drain loop never blocks on a caller that has already given up.
type waiter struct {
	ch      chan error
	granted bool
}

// TokenBucket enforces a requests-per-minute ceiling with burst capacity.
// Acquire never rejects: callers queue in FIFO order and are granted tokens
// as the bucket refills. All state is guarded by a single mutex.
type TokenBucket struct {
	mu         sync.Mutex
	rpm        float64
	burst      int
	interval   time.Duration
	tokens     float64
	lastRefill time.Time
	waiters    []*waiter
	timer      *time.Timer
}

// NewTokenBucket creates a bucket allowing rpm requests per minute with the
// given burst capacity. Both must be at least 1: a zero burst could never
// admit a request and a zero rate would make the refill interval infinite.
func NewTokenBucket(rpm, burst int) (*TokenBucket, error) {
	if rpm < 1 {
		return nil, fmt.Errorf("rpm must be >= 1, got %d", rpm)
	}
	if burst < 1 {
		return nil, fmt.Errorf("burst must be >= 1, got %d", burst)
	}
	return &TokenBucket{
		rpm:        float64(rpm),
		burst:      burst,
		interval:   intervalFor(float64(rpm)),
		tokens:     float64(burst),
		lastRefill: time.Now(),
	}, nil
}

func intervalFor(rpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / rpm)
}

// Acquire blocks until a token is available or ctx is done. Tokens are
// granted strictly in arrival order; a caller that arrives while others are
// queued goes to the back of the queue even if a token is free.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	b.mu.Lock()
	b.refillLocked(time.Now())
	if len(b.waiters) == 0 && b.tokens >= 1 {
		b.tokens--
		b.mu.Unlock()
		return nil
	}
	w := &waiter{ch: make(chan error, 1)}
	b.waiters = append(b.waiters, w)
	b.scheduleDrainLocked(time.Now())
	b.mu.Unlock()

	select {
	case err := <-w.ch:
		return err
	case <-ctx.Done():
		b.mu.Lock()
		if w.granted {
			// Lost the race: a token was already spent on this waiter.
			// Refund it and hand it to the next in line.
			b.tokens = math.Min(float64(b.burst), b.tokens+1)
			b.drainLocked(time.Now())
		} else {
			b.removeWaiterLocked(w)
		}
		b.mu.Unlock()
		return ctx.Err()
	}
}

// Status refills the bucket and returns a snapshot of its state.
func (b *TokenBucket) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(time.Now())
	return Status{
		RPM:             b.rpm,
		Burst:           b.burst,
		AvailableTokens: b.tokens,
		QueueLength:     len(b.waiters),
	}
}

// Reset restores the bucket to full burst and fails every queued waiter with
// ErrLimiterReset so no caller is left hanging.
func (b *TokenBucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.waiters {
		w.ch <- ErrLimiterReset
	}
	b.waiters = nil
	b.tokens = float64(b.burst)
	b.lastRefill = time.Now()
	if b.timer != nil {
		b.timer.Stop()
	}
}

// setRate changes the requests-per-minute rate and recomputes the refill
// interval. Used by the adaptive wrapper; rpm must be positive.
func (b *TokenBucket) setRate(rpm float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// Settle accrual under the old interval before switching.
	b.refillLocked(time.Now())
	b.rpm = rpm
	b.interval = intervalFor(rpm)
	if len(b.waiters) > 0 {
		b.scheduleDrainLocked(time.Now())
	}
}

// clampTokens caps the available token count at max. Used by the adaptive
// wrapper so an in-progress burst cannot spend through a pre-penalty
// allowance.
func (b *TokenBucket) clampTokens(max float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokens > max {
		b.tokens = max
	}
}

// refillLocked adds the whole tokens accrued since the last refill, capped
// at burst. The last-refill timestamp advances only by the time consumed by
// the added tokens so fractional accrual is never discarded; when the bucket
// is full the timestamp snaps to now since a full bucket accrues nothing.
func (b *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	n := int64(elapsed / b.interval)
	if n <= 0 {
		return
	}
	b.tokens += float64(n)
	if b.tokens >= float64(b.burst) {
		b.tokens = float64(b.burst)
		b.lastRefill = now
		return
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(n) * b.interval)
}

// drainLocked grants tokens to queued waiters in FIFO order and schedules a
// follow-up pass if waiters remain, so the queue makes progress without new
// Acquire calls arriving.
func (b *TokenBucket) drainLocked(now time.Time) {
	for len(b.waiters) > 0 && b.tokens >= 1 {
		w := b.waiters[0]
		b.waiters = b.waiters[1:]
		b.tokens--
		w.granted = true
		w.ch <- nil
	}
	if len(b.waiters) > 0 {
		b.scheduleDrainLocked(now)
	}
}

// scheduleDrainLocked arms the drain timer for when the next token is
// expected to accrue.
func (b *TokenBucket) scheduleDrainLocked(now time.Time) {
	delay := b.lastRefill.Add(b.interval).Sub(now)
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(delay, b.drainPass)
		return
	}
	b.timer.Reset(delay)
}

func (b *TokenBucket) drainPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.refillLocked(now)
	b.drainLocked(now)
}

func (b *TokenBucket) removeWaiterLocked(w *waiter) {
	for i, queued := range b.waiters {
		if queued == w {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			return
		}
	}
}
