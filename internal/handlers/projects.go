package handlers

import (
	"context"
	"net/http"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/request"
	"github.com/benvon/smart-tasks/internal/services/projects"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ProjectService is the subset of projects.Service used by ProjectHandler
type ProjectService interface {
	List(ctx context.Context, user *models.User) ([]*models.Project, error)
	Get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Project, error)
	Create(ctx context.Context, user *models.User, in projects.Input) (*models.Project, error)
	Update(ctx context.Context, user *models.User, id uuid.UUID, in projects.Input) (*models.Project, error)
	Delete(ctx context.Context, user *models.User, id uuid.UUID) error
}

var _ ProjectService = (*projects.Service)(nil)

// ProjectHandler handles project routes
type ProjectHandler struct {
	service ProjectService
	logger  *zap.Logger
}

func NewProjectHandler(service ProjectService, logger *zap.Logger) *ProjectHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectHandler{service: service, logger: logger}
}

// RegisterRoutes registers project routes on a subrouter mounted at /api/projects
func (h *ProjectHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListProjects).Methods("GET")
	r.HandleFunc("", h.CreateProject).Methods("POST")
	r.HandleFunc("/{id}", h.GetProject).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateProject).Methods("PUT")
	r.HandleFunc("/{id}", h.DeleteProject).Methods("DELETE")
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	list, err := h.service.List(r.Context(), user)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
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

	project, err := h.service.Get(r.Context(), user, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not authenticated")
		return
	}

	var in projects.Input
	if err := decodeJSON(r, &in); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	project, err := h.service.Create(r.Context(), user, in)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, project)
}

// UpdateProject replaces the name and description. Tasks keep their copied project name.
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
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

	var in projects.Input
	if err := decodeJSON(r, &in); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	project, err := h.service.Update(r.Context(), user, id, in)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// DeleteProject removes the project and its tasks
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
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
