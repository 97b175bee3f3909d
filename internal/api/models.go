package api

import (
	"time"

	"github.com/PsychArch/minimax-mcp-tools/internal/generation"
	"github.com/PsychArch/minimax-mcp-tools/internal/ratelimit"
	"github.com/PsychArch/minimax-mcp-tools/internal/task"
)

// CreateImageRequest represents the request body for submitting image work.
type CreateImageRequest struct {
	Prompt      string `json:"prompt" validate:"required,min=1"`
	AspectRatio string `json:"aspect_ratio,omitempty" validate:"omitempty,oneof=1:1 16:9 4:3 3:2 2:3 3:4 9:16 21:9"`
	Count       int    `json:"count,omitempty" validate:"omitempty,gte=1,lte=9"`
	TaskID      string `json:"task_id,omitempty"`
}

// CreateSpeechRequest represents the request body for submitting speech work.
type CreateSpeechRequest struct {
	Text    string  `json:"text" validate:"required,min=1"`
	VoiceID string  `json:"voice_id,omitempty"`
	Speed   float64 `json:"speed,omitempty" validate:"omitempty,gte=0.5,lte=2"`
	TaskID  string  `json:"task_id,omitempty"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
}

// ErrorDetail carries a failed task's structured error: enough for the
// caller to decide whether resubmitting is worthwhile.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// TaskResultResponse is one settled task in a barrier response.
type TaskResultResponse struct {
	ID          string       `json:"id"`
	Category    string       `json:"category,omitempty"`
	Success     bool         `json:"success"`
	Output      any          `json:"output,omitempty"`
	Error       *ErrorDetail `json:"error,omitempty"`
	CompletedAt time.Time    `json:"completed_at"`
}

// BarrierResponse aggregates every task settled since the last clear.
type BarrierResponse struct {
	Completed int                  `json:"completed"`
	Results   []TaskResultResponse `json:"results"`
}

// TaskStatusResponse reports the state of one task id.
type TaskStatusResponse struct {
	ID     string              `json:"id"`
	Status string              `json:"status"`
	Result *TaskResultResponse `json:"result,omitempty"`
}

// LimiterStatusResponse is one category's limiter snapshot.
type LimiterStatusResponse struct {
	OriginalRPM       int     `json:"original_rpm"`
	EffectiveRPM      float64 `json:"effective_rpm"`
	Burst             int     `json:"burst"`
	AvailableTokens   float64 `json:"available_tokens"`
	QueueLength       int     `json:"queue_length"`
	ConsecutiveErrors int     `json:"consecutive_errors"`

	// LastErrorAt is omitted while the limiter has never been penalized.
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}

// CategoryMetricsResponse is one category's counters plus limiter state.
type CategoryMetricsResponse struct {
	Requests  int64                 `json:"requests"`
	Successes int64                 `json:"successes"`
	Errors    int64                 `json:"errors"`
	Limiter   LimiterStatusResponse `json:"limiter"`
}

// MetricsResponse is the full observability snapshot.
type MetricsResponse struct {
	Categories map[string]CategoryMetricsResponse `json:"categories"`
	Tasks      TaskStatsResponse                  `json:"tasks"`
}

// TaskStatsResponse counts tracked registry entries.
type TaskStatsResponse struct {
	InFlight  int `json:"in_flight"`
	Completed int `json:"completed"`
}

// taskResultToDTO converts a task.Result to its response form.
func taskResultToDTO(res task.Result) TaskResultResponse {
	dto := TaskResultResponse{
		ID:          res.ID,
		Category:    string(res.Category),
		Success:     res.Succeeded(),
		Output:      res.Value,
		CompletedAt: res.CompletedAt,
	}
	if res.Err != nil {
		dto.Error = &ErrorDetail{
			Kind:    string(generation.KindOf(res.Err)),
			Message: res.Err.Error(),
		}
	}
	return dto
}

// limiterStatusToDTO converts a limiter snapshot to its response form.
func limiterStatusToDTO(status ratelimit.AdaptiveStatus) LimiterStatusResponse {
	dto := LimiterStatusResponse{
		OriginalRPM:       status.OriginalRPM,
		EffectiveRPM:      status.EffectiveRPM,
		Burst:             status.Burst,
		AvailableTokens:   status.AvailableTokens,
		QueueLength:       status.QueueLength,
		ConsecutiveErrors: status.ConsecutiveErrors,
	}
	if !status.LastErrorAt.IsZero() {
		at := status.LastErrorAt
		dto.LastErrorAt = &at
	}
	return dto
}
