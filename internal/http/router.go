package httpapi

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, app *App) {
	r.Get("/healthz", healthHandler)
	r.Get("/tasks", app.listTasksHandler)
	r.Post("/tasks", app.createTaskHandler)
	r.Delete("/tasks/{id}", app.deleteTaskHandler)
	r.Post("/tasks/{id}/comments", app.addCommentHandler)
	r.Put("/tasks/{id}/status", app.updateStatusHandler)
}
