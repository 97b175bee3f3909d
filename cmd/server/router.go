package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PsychArch/minimax-mcp-tools/internal/api"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	generationHandler := api.NewGenerationHandler(app.service, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Asynchronous submission; both return 202 with a task id.
		r.Post("/images", generationHandler.CreateImage)
		r.Post("/speech", generationHandler.CreateSpeech)

		// Synchronization and observability.
		r.Post("/barrier", generationHandler.Barrier)
		r.Get("/tasks/{id}", generationHandler.GetTask)
		r.Get("/metrics", generationHandler.GetMetrics)
		r.Post("/metrics/reset", generationHandler.ResetMetrics)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
