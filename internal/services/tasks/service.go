// Package tasks implements owner-scoped task operations on top of the task store.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/benvon/smart-tasks/internal/database"
	"github.com/benvon/smart-tasks/internal/lifecycle"
	"github.com/benvon/smart-tasks/internal/logger"
	"github.com/benvon/smart-tasks/internal/models"
	"github.com/benvon/smart-tasks/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateInput carries the fields of a new task
type CreateInput struct {
	Name            string              `json:"name" validate:"required,max=200"`
	Description     string              `json:"description" validate:"required,max=10000"`
	ProjectID       uuid.UUID           `json:"project_id" validate:"required"`
	Status          models.TaskStatus   `json:"status" validate:"required,task_status"`
	Priority        models.TaskPriority `json:"priority" validate:"required,task_priority"`
	StartDate       *time.Time          `json:"start_date" validate:"required"`
	EndDate         *time.Time          `json:"end_date" validate:"required"`
	Subtasks        []models.Subtask    `json:"subtasks" validate:"max=100,dive"`
	CustomReminders []int               `json:"custom_reminders" validate:"omitempty,dive,gt=0"`
}

// UpdateInput carries a partial update. Nil fields are left unchanged.
type UpdateInput struct {
	Name            *string              `json:"name,omitempty" validate:"omitempty,max=200"`
	Description     *string              `json:"description,omitempty" validate:"omitempty,max=10000"`
	ProjectID       *uuid.UUID           `json:"project_id,omitempty"`
	Status          *models.TaskStatus   `json:"status,omitempty" validate:"omitempty,task_status"`
	Priority        *models.TaskPriority `json:"priority,omitempty" validate:"omitempty,task_priority"`
	StartDate       *time.Time           `json:"start_date,omitempty"`
	EndDate         *time.Time           `json:"end_date,omitempty"`
	Subtasks        *[]models.Subtask    `json:"subtasks,omitempty" validate:"omitempty,max=100,dive"`
	CustomReminders *[]int               `json:"custom_reminders,omitempty" validate:"omitempty,dive,gt=0"`
}

// ListResult is the caller's task list with per-status counts
type ListResult struct {
	Tasks  []*models.Task    `json:"tasks"`
	Counts models.TaskCounts `json:"counts"`
}

// Service applies ownership, validation and lifecycle rules to task changes
type Service struct {
	tasks    database.TaskStore
	projects database.ProjectStore
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a task service. Calendar-day rules are evaluated in loc.
func NewService(tasks database.TaskStore, projects database.ProjectStore, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tasks:    tasks,
		projects: projects,
		loc:      loc,
		now:      time.Now,
		logger:   log,
	}
}

// List returns every task owned by user together with aggregate counts
func (s *Service) List(ctx context.Context, user *models.User) (*ListResult, error) {
	tasks, err := s.tasks.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return &ListResult{Tasks: tasks, Counts: models.CountTasks(tasks)}, nil
}

// ListByProject returns the caller's tasks in one of their projects
func (s *Service) ListByProject(ctx context.Context, user *models.User, projectID uuid.UUID) ([]*models.Task, error) {
	if _, err := s.ownedProject(ctx, user, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListByProject(ctx, user.ID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

// Get returns a single task owned by user
func (s *Service) Get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task.Owner.ID != user.ID {
		return nil, ErrNotFound
	}
	return task, nil
}

// Create validates and stores a new task
func (s *Service) Create(ctx context.Context, user *models.User, in CreateInput) (*models.Task, error) {
	in.Name = validation.SanitizeText(in.Name)
	in.Description = validation.SanitizeText(in.Description)
	in.Subtasks = sanitizeSubtasks(in.Subtasks)

	verr := validateInput(in)
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		verr.add("end_date", "must not be before start_date")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	project, err := s.ownedProject(ctx, user, in.ProjectID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := lifecycle.ValidateStatusTransition(in.Status, *in.EndDate, in.Subtasks, now, s.loc); err != nil {
		return nil, err
	}

	task := &models.Task{
		ID:              uuid.New(),
		Name:            in.Name,
		Description:     in.Description,
		Project:         project.Ref(),
		Owner:           user.Ref(),
		Status:          in.Status,
		Priority:        in.Priority,
		StartDate:       in.StartDate.UTC(),
		EndDate:         in.EndDate.UTC(),
		Subtasks:        in.Subtasks,
		CustomReminders: uniqueHours(in.CustomReminders),
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
	task.NormalizeSubtaskIDs()

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task_created",
		zap.String("task_id", task.ID.String()),
		zap.String("user_id", logger.SanitizeUserID(user.ID.String())),
		zap.String("status", string(task.Status)))

	return task, nil
}

// Update applies a partial update. An explicit status in the request counts as a
// manual status change; a subtask edit without one derives the status.
func (s *Service) Update(ctx context.Context, user *models.User, id uuid.UUID, in UpdateInput) (*models.Task, error) {
	task, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	previousStatus := task.Status

	if in.Name != nil {
		in.Name = ptrTo(validation.SanitizeText(*in.Name))
	}
	if in.Description != nil {
		in.Description = ptrTo(validation.SanitizeText(*in.Description))
	}
	if in.Subtasks != nil {
		in.Subtasks = ptrTo(sanitizeSubtasks(*in.Subtasks))
	}

	verr := validateInput(in)
	if in.Name != nil && *in.Name == "" {
		verr.add("name", "is required")
	}
	if in.Description != nil && *in.Description == "" {
		verr.add("description", "is required")
	}

	if in.Name != nil {
		task.Name = *in.Name
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.StartDate != nil {
		task.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		task.EndDate = in.EndDate.UTC()
	}
	if task.EndDate.Before(task.StartDate) {
		verr.add("end_date", "must not be before start_date")
	}
	if in.Subtasks != nil {
		task.Subtasks = *in.Subtasks
	}
	if in.CustomReminders != nil {
		task.CustomReminders = uniqueHours(*in.CustomReminders)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if in.ProjectID != nil && *in.ProjectID != task.Project.ID {
		project, err := s.ownedProject(ctx, user, *in.ProjectID)
		if err != nil {
			return nil, err
		}
		task.Project = project.Ref()
	}

	now := s.now()
	switch {
	case in.Status != nil:
		if *in.Status != previousStatus {
			if err := lifecycle.ValidateStatusTransition(*in.Status, task.EndDate, task.Subtasks, now, s.loc); err != nil {
				return nil, err
			}
		}
		task.Status = *in.Status
	case in.Subtasks != nil:
		task.Status = lifecycle.DeriveStatusAfterSubtaskChange(task.Status, task.Subtasks, false)
	}

	task.NormalizeSubtaskIDs()
	task.UpdatedAt = now.UTC()

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if task.Status != previousStatus {
		s.logger.Info("task_status_changed",
			zap.String("task_id", task.ID.String()),
			zap.String("from", string(previousStatus)),
			zap.String("to", string(task.Status)))
	}

	return task, nil
}

// Delete removes a task owned by user along with its subtasks
func (s *Service) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	if _, err := s.Get(ctx, user, id); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *Service) ownedProject(ctx context.Context, user *models.User, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project.OwnerID != user.ID {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

// validateInput runs the struct tag rules and collects the failures per field
func validateInput(in any) *ValidationError {
	verr := &ValidationError{}
	if err := validation.Validate.Struct(in); err != nil {
		for field, msg := range validation.FieldErrors(err) {
			verr.add(field, msg)
		}
	}
	return verr
}

func sanitizeSubtasks(in []models.Subtask) []models.Subtask {
	out := make([]models.Subtask, 0, len(in))
	for _, st := range in {
		st.Title = validation.SanitizeText(st.Title)
		out = append(out, st)
	}
	return out
}

// uniqueHours returns the reminder offsets deduplicated and ascending
func uniqueHours(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, h := range in {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

func ptrTo[T any](v T) *T { return &v }
