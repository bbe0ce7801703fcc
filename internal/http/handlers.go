package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratikrzr/task-management-app/internal/models"
	"github.com/pratikrzr/task-management-app/internal/store"
	"github.com/pratikrzr/task-management-app/internal/tasks"
)

type CreateTaskRequest struct {
	Title    string          `json:"title"`
	Priority models.Priority `json:"priority"`
}

type AddCommentRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type UpdateStatusRequest struct {
	Status models.Status `json:"status"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var ve *tasks.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Msg})
	case errors.Is(err, store.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process task request"})
	}
}

func (a *App) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	list, err := a.Tasks.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *App) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := a.Tasks.Create(r.Context(), req.Title, req.Priority)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (a *App) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	task, err := a.Tasks.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *App) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := a.Tasks.AddComment(r.Context(), chi.URLParam(r, "id"), req.Author, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *App) updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := a.Tasks.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
