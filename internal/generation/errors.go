package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a generation failure. The scheduler records every kind as
// a task failure, but only KindRateLimit feeds the adaptive limiter's
// backoff.
type Kind string

// Failure kinds, from most to least actionable.
const (
	// KindConfiguration indicates missing or invalid setup (e.g. a bad
	// API key). Fatal at startup; a work function may still surface it.
	KindConfiguration Kind = "configuration"

	// KindValidation indicates malformed input to a work function.
	KindValidation Kind = "validation"

	// KindNetwork indicates a transient connectivity failure.
	KindNetwork Kind = "network"

	// KindTimeout indicates the remote call exceeded its deadline.
	KindTimeout Kind = "timeout"

	// KindRateLimit indicates the remote service explicitly signaled
	// throttling. The only kind that tightens the rate limiter.
	KindRateLimit Kind = "rate_limit"

	// KindGeneric covers everything else.
	KindGeneric Kind = "generic"
)

// Error is the structured failure recorded as a task's terminal outcome. It
// retains enough shape (kind + message) for a caller inspecting barrier
// results to decide whether to resubmit.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RateLimited reports whether this error is an explicit throttling signal.
// The ratelimit package discovers it through errors.As, keeping the two
// packages decoupled.
func (e *Error) RateLimited() bool {
	return e.Kind == KindRateLimit
}

// NewError creates a generation error of the given kind wrapping err, which
// may be nil.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf classifies an arbitrary error. A *generation.Error anywhere in the
// unwrap chain wins; context deadline and net errors are mapped to their
// kinds; everything else is generic.
func KindOf(err error) Kind {
	if err == nil {
		return KindGeneric
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	return KindGeneric
}
