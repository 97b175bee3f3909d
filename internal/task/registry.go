package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the Registry
var (
	// ErrDuplicateTaskID is returned when a caller-supplied id collides
	// with a task that is still tracked (in-flight or completed-uncleared).
	ErrDuplicateTaskID = errors.New("task id already tracked")
)

// entry is an in-flight task. The done channel closes exactly once, after
// the result has been recorded in the completed set.
type entry struct {
	category Category
	done     chan struct{}
}

// Registry tracks in-flight and completed background tasks. A task id lives
// in exactly one of the in-flight map, the completed map, or neither; the
// single mutex makes every transition atomic with respect to concurrent
// Submit, Barrier and Status calls.
type Registry struct {
	mu        sync.Mutex
	inflight  map[string]*entry
	completed map[string]Result

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewRegistry creates an empty registry. The logger must not be nil.
func NewRegistry(logger *slog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		inflight:  make(map[string]*entry),
		completed: make(map[string]Result),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger.With("component", "task_registry"),
	}
}

// Submit registers a new running task under id (generated when empty) and
// begins executing fn without blocking the caller. The returned id can be
// polled with Status or collected through Barrier.
func (r *Registry) Submit(category Category, id string, fn WorkFunc) (string, error) {
	r.mu.Lock()
	if id == "" {
		id = r.generateIDLocked()
	} else if r.trackedLocked(id) {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrDuplicateTaskID, id)
	}
	e := &entry{category: category, done: make(chan struct{})}
	r.inflight[id] = e
	r.mu.Unlock()

	r.logger.Debug("task submitted", "task_id", id, "category", string(category))

	r.wg.Add(1)
	go r.run(id, e, fn)
	return id, nil
}

// run executes the work function and records its outcome as a single
// transition: removed from in-flight and added to completed under one lock
// acquisition, then the done channel is closed.
func (r *Registry) run(id string, e *entry, fn WorkFunc) {
	defer r.wg.Done()

	value, err := r.execute(fn)

	r.mu.Lock()
	delete(r.inflight, id)
	r.completed[id] = Result{
		ID:          id,
		Category:    e.category,
		Value:       value,
		Err:         err,
		CompletedAt: time.Now(),
	}
	r.mu.Unlock()
	close(e.done)

	if err != nil {
		r.logger.Error("task failed", "task_id", id, "category", string(e.category), "error", err)
		return
	}
	r.logger.Debug("task completed", "task_id", id, "category", string(e.category))
}

// execute runs fn, converting a panic into a recorded failure so one bad
// work function never takes the registry down.
func (r *Registry) execute(fn WorkFunc) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
			r.logger.Error("recovered panic in task",
				"panic", rec,
				"stack", string(debug.Stack()))
		}
	}()
	return fn(r.ctx)
}

// Barrier waits for every task in-flight at call time to settle, then
// returns all completed entries (including ones that settled before the
// call and were never cleared). Task failures are data in the results, not
// errors from Barrier; the only error is ctx expiring mid-wait. Tasks
// submitted while the barrier is waiting are not awaited by this call.
func (r *Registry) Barrier(ctx context.Context) (*BarrierResult, error) {
	r.mu.Lock()
	pending := make([]<-chan struct{}, 0, len(r.inflight))
	for _, e := range r.inflight {
		pending = append(pending, e.done)
	}
	r.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	results := make([]Result, 0, len(r.completed))
	for _, res := range r.completed {
		results = append(results, res)
	}
	r.mu.Unlock()

	// Order is unspecified by contract; completion order keeps output stable.
	sort.Slice(results, func(i, j int) bool {
		if results[i].CompletedAt.Equal(results[j].CompletedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].CompletedAt.Before(results[j].CompletedAt)
	})

	return &BarrierResult{Completed: len(results), Results: results}, nil
}

// Status reports the current state of a task id. For completed tasks the
// result snapshot is returned alongside.
func (r *Registry) Status(id string) (Status, *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[id]; ok {
		return StatusRunning, nil
	}
	if res, ok := r.completed[id]; ok {
		return StatusCompleted, &res
	}
	return StatusNotFound, nil
}

// ClearCompleted removes every completed entry and returns how many were
// removed. In-flight tasks are untouched.
func (r *Registry) ClearCompleted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.completed)
	r.completed = make(map[string]Result)
	return n
}

// Stats returns the counts of in-flight and completed-uncleared entries.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{InFlight: len(r.inflight), Completed: len(r.completed)}
}

// Stop cancels the lifecycle context handed to work functions and waits for
// every in-flight task to settle. Used during graceful shutdown.
func (r *Registry) Stop() {
	r.cancel()
	r.wg.Wait()
}

// generateIDLocked returns a uuid not colliding with any tracked id.
func (r *Registry) generateIDLocked() string {
	for {
		id := uuid.New().String()
		if !r.trackedLocked(id) {
			return id
		}
	}
}

func (r *Registry) trackedLocked(id string) bool {
	if _, ok := r.inflight[id]; ok {
		return true
	}
	_, ok := r.completed[id]
	return ok
}
