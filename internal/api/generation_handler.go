// Package api exposes the generation operations over HTTP: asynchronous
// image and speech submission, the barrier that synchronizes on all
// outstanding work, task status lookup, and the metrics snapshot.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/PsychArch/minimax-mcp-tools/internal/api/shared"
	"github.com/PsychArch/minimax-mcp-tools/internal/generation"
	"github.com/PsychArch/minimax-mcp-tools/internal/service"
	"github.com/PsychArch/minimax-mcp-tools/internal/task"
)

// GenerationHandler handles generation-related HTTP requests.
type GenerationHandler struct {
	service   *service.GenerationService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(svc *service.GenerationService, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		service:   svc,
		validator: validator.New(),
		logger:    logger.With("component", "generation_handler"),
	}
}

// CreateImage handles POST /api/images. Returns 202 Accepted with the task
// id; the work executes asynchronously behind the image rate limiter.
func (h *GenerationHandler) CreateImage(w http.ResponseWriter, r *http.Request) {
	var req CreateImageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	taskID, err := h.service.SubmitImage(service.ImageParams{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Count:       req.Count,
		TaskID:      req.TaskID,
	})
	if err != nil {
		h.respondSubmitError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{TaskID: taskID})
}

// CreateSpeech handles POST /api/speech. Returns 202 Accepted with the task
// id; the work executes asynchronously behind the speech rate limiter.
func (h *GenerationHandler) CreateSpeech(w http.ResponseWriter, r *http.Request) {
	var req CreateSpeechRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	taskID, err := h.service.SubmitSpeech(service.SpeechParams{
		Text:    req.Text,
		VoiceID: req.VoiceID,
		Speed:   req.Speed,
		TaskID:  req.TaskID,
	})
	if err != nil {
		h.respondSubmitError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{TaskID: taskID})
}

// Barrier handles POST /api/barrier. Waits for every in-flight task, then
// returns (and clears) every result accumulated since the last barrier.
// Individual task failures are entries in the result list, never an error
// status for the barrier itself.
func (h *GenerationHandler) Barrier(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Barrier(r.Context())
	if err != nil {
		// Only the request context expiring lands here.
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "Barrier interrupted")
		return
	}

	resp := BarrierResponse{
		Completed: result.Completed,
		Results:   make([]TaskResultResponse, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		resp.Results = append(resp.Results, taskResultToDTO(res))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetTask handles GET /api/tasks/{id}.
func (h *GenerationHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, result := h.service.Status(id)
	if status == task.StatusNotFound {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	resp := TaskStatusResponse{ID: id, Status: string(status)}
	if result != nil {
		dto := taskResultToDTO(*result)
		resp.Result = &dto
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetMetrics handles GET /api/metrics.
func (h *GenerationHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	counters, limiters, stats := h.service.Metrics()

	resp := MetricsResponse{
		Categories: make(map[string]CategoryMetricsResponse, len(counters)),
		Tasks:      TaskStatsResponse{InFlight: stats.InFlight, Completed: stats.Completed},
	}
	for category, m := range counters {
		resp.Categories[string(category)] = CategoryMetricsResponse{
			Requests:  m.Requests,
			Successes: m.Successes,
			Errors:    m.Errors,
			Limiter:   limiterStatusToDTO(limiters[category]),
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ResetMetrics handles POST /api/metrics/reset.
func (h *GenerationHandler) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	h.service.ResetMetrics()
	w.WriteHeader(http.StatusNoContent)
}

// respondSubmitError maps submission failures to status codes: validation
// problems and duplicate ids are the caller's fault, everything else is not.
func (h *GenerationHandler) respondSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case generation.KindOf(err) == generation.KindValidation:
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, task.ErrDuplicateTaskID):
		shared.RespondWithError(w, r, http.StatusConflict, err.Error())
	default:
		h.logger.Error("failed to submit task", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to submit task")
	}
}
