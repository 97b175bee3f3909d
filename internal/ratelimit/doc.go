// Package ratelimit implements the request pacing used in front of the
// MiniMax APIs: a token bucket with a FIFO waiter queue, and an adaptive
// wrapper that narrows the effective rate when the remote service signals
// throttling and slowly widens it back after sustained success.
package ratelimit
