package database

import (
	"context"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
)

// TaskStore persists tasks together with their subtasks
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error)
	ListByProject(ctx context.Context, ownerID, projectID uuid.UUID) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	// SyncProjectName rewrites the project name copied onto tasks
	SyncProjectName(ctx context.Context, projectID uuid.UUID, name string) (int64, error)
}

// ProjectStore persists projects
type ProjectStore interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserStore persists user accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// ListNotifiable returns users who granted notification permission
	ListNotifiable(ctx context.Context) ([]*models.User, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskStore    = (*TaskRepository)(nil)
	_ ProjectStore = (*ProjectRepository)(nil)
	_ UserStore    = (*UserRepository)(nil)
)
