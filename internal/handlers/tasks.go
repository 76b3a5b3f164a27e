package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/request"
	"github.com/benvon/smart-tasks/internal/services/tasks"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskService is the subset of tasks.Service used by TaskHandler
type TaskService interface {
	List(ctx context.Context, user *models.User) (*tasks.ListResult, error)
	ListByProject(ctx context.Context, user *models.User, projectID uuid.UUID) ([]*models.Task, error)
	Get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Task, error)
	Create(ctx context.Context, user *models.User, in tasks.CreateInput) (*models.Task, error)
	Update(ctx context.Context, user *models.User, id uuid.UUID, in tasks.UpdateInput) (*models.Task, error)
	Delete(ctx context.Context, user *models.User, id uuid.UUID) error
}

var _ TaskService = (*tasks.Service)(nil)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	service TaskService
	logger  *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(service TaskService, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{service: service, logger: logger}
}

// RegisterRoutes registers task routes on a subrouter mounted at /api/tasks
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/project/{projectId}", h.ListProjectTasks).Methods("GET")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
}

// ListTasks returns the caller's tasks with per-status counts
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	result, err := h.service.List(r.Context(), user)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListProjectTasks returns the caller's tasks in one project
func (h *TaskHandler) ListProjectTasks(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	projectID, err := pathUUID(r, "projectId")
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	list, err := h.service.ListByProject(r.Context(), user, projectID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	task, err := h.service.Get(r.Context(), user, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// CreateTask creates a task for the caller
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	var in tasks.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	task, err := h.service.Create(r.Context(), user, in)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	var in tasks.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	task, err := h.service.Update(r.Context(), user, id, in)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	id, err := pathUUID(r, "id")
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if err := h.service.Delete(r.Context(), user, id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
