package task

import (
	"context"
	"time"
)

// Category tags a task with the rate-limit bucket it draws from.
type Category string

// Known categories. The empty category is valid and bypasses rate limiting.
const (
	CategoryImage  Category = "image"
	CategorySpeech Category = "speech"
)

// Status represents the observable state of a task id.
type Status string

// Possible task status values. A task is in exactly one of these states at
// any observation point.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusNotFound  Status = "not_found"
)

// WorkFunc is a unit of background work. The context is the registry's
// lifecycle context; there is no per-task cancellation — once submitted, a
// task runs until it settles.
type WorkFunc func(ctx context.Context) (any, error)

// Result is the terminal outcome of a task. Both success and failure are
// recorded outcomes, never silently dropped.
type Result struct {
	ID          string
	Category    Category
	Value       any
	Err         error
	CompletedAt time.Time
}

// Succeeded reports whether the task settled without error.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// BarrierResult aggregates everything a barrier collected: every task that
// was in-flight when the barrier was called plus every previously completed
// entry not yet cleared.
type BarrierResult struct {
	Completed int
	Results   []Result
}

// Stats counts the registry's tracked entries.
type Stats struct {
	InFlight  int
	Completed int
}
