// Package projects implements owner-scoped project operations.
package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxNameLength is the maximum length of a project name
	MaxNameLength = 120
	// MaxDescriptionLength is the maximum length of a project description
	MaxDescriptionLength = 2000
)

var (
	// ErrNotFound is returned when a project does not exist or belongs to another user
	ErrNotFound = errors.New("project not found")
	// ErrInvalidName is returned for an empty or oversized project name
	ErrInvalidName = errors.New("project name must be between 1 and 120 characters")
	// ErrInvalidDescription is returned for an oversized description
	ErrInvalidDescription = errors.New("project description must be at most 2000 characters")
)

// Input carries the editable fields of a project
type Input struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

// Service manages projects and the tasks filed under them
type Service struct {
	projects database.ProjectStore
	tasks    database.TaskStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a project service
func NewService(projects database.ProjectStore, tasks database.TaskStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{projects: projects, tasks: tasks, now: time.Now, logger: log}
}

// List returns the caller's projects
func (s *Service) List(ctx context.Context, user *models.User) ([]*models.Project, error) {
	projects, err := s.projects.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	return projects, nil
}

// Get returns one of the caller's projects
func (s *Service) Get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project.OwnerID != user.ID {
		return nil, ErrNotFound
	}
	return project, nil
}

// Create stores a new project for the caller
func (s *Service) Create(ctx context.Context, user *models.User, in Input) (*models.Project, error) {
	name, description, err := clean(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	project := &models.Project{
		ID:          uuid.New(),
		OwnerID:     user.ID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// Update changes a project's name and description. Tasks keep the name they
// were assigned with until ResyncNames is run.
func (s *Service) Update(ctx context.Context, user *models.User, id uuid.UUID, in Input) (*models.Project, error) {
	project, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	name, description, err := clean(in)
	if err != nil {
		return nil, err
	}

	project.Name = name
	project.Description = description
	project.UpdatedAt = s.now().UTC()

	if err := s.projects.Update(ctx, project); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// Delete removes a project and every task filed under it
func (s *Service) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	if _, err := s.Get(ctx, user, id); err != nil {
		return err
	}

	removed, err := s.tasks.DeleteByProject(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete project tasks: %w", err)
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.Info("project_deleted",
		zap.String("project_id", id.String()),
		zap.Int64("tasks_removed", removed))
	return nil
}

// ResyncNames copies the current project name onto its tasks. It is an
// operator action and does not check ownership.
func (s *Service) ResyncNames(ctx context.Context, id uuid.UUID) (int64, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get project: %w", err)
	}

	n, err := s.tasks.SyncProjectName(ctx, project.ID, project.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to sync project name: %w", err)
	}
	s.logger.Info("project_name_resynced",
		zap.String("project_id", project.ID.String()),
		zap.Int64("tasks_updated", n))
	return n, nil
}

func clean(in Input) (string, string, error) {
	in.Name = validation.SanitizeText(in.Name)
	in.Description = validation.SanitizeText(in.Description)
	if err := validation.Validate.Struct(in); err != nil {
		fields := validation.FieldErrors(err)
		if _, ok := fields["name"]; ok {
			return "", "", ErrInvalidName
		}
		if _, ok := fields["description"]; ok {
			return "", "", ErrInvalidDescription
		}
		return "", "", fmt.Errorf("failed to validate project: %w", err)
	}
	return in.Name, in.Description, nil
}
