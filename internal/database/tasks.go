package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-tasks/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, owner_id, owner_name, project_id, project_name, name, description,
		status, priority, start_date, end_date, subtasks, custom_reminders, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var subtasksJSON []byte
	var reminders pq.Int64Array

	err := row.Scan(
		&task.ID,
		&task.Owner.ID,
		&task.Owner.Name,
		&task.Project.ID,
		&task.Project.Name,
		&task.Name,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.StartDate,
		&task.EndDate,
		&subtasksJSON,
		&reminders,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Subtasks = []models.Subtask{}
	if len(subtasksJSON) > 0 {
		if err := json.Unmarshal(subtasksJSON, &task.Subtasks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subtasks: %w", err)
		}
	}
	task.CustomReminders = make([]int, len(reminders))
	for i, h := range reminders {
		task.CustomReminders[i] = int(h)
	}

	return task, nil
}

func encodeTaskCollections(task *models.Task) ([]byte, pq.Int64Array, error) {
	subtasks := task.Subtasks
	if subtasks == nil {
		subtasks = []models.Subtask{}
	}
	subtasksJSON, err := json.Marshal(subtasks)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal subtasks: %w", err)
	}
	reminders := make(pq.Int64Array, len(task.CustomReminders))
	for i, h := range task.CustomReminders {
		reminders[i] = int64(h)
	}
	return subtasksJSON, reminders, nil
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, owner_id, owner_name, project_id, project_name, name, description,
			status, priority, start_date, end_date, subtasks, custom_reminders, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	subtasksJSON, reminders, err := encodeTaskCollections(task)
	if err != nil {
		return err
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Owner.ID,
		task.Owner.Name,
		task.Project.ID,
		task.Project.Name,
		task.Name,
		task.Description,
		task.Status,
		task.Priority,
		task.StartDate,
		task.EndDate,
		subtasksJSON,
		reminders,
		now,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListByOwner retrieves every task owned by a user, soonest due first
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1 ORDER BY end_date ASC, created_at ASC`
	return r.list(ctx, query, ownerID)
}

// ListByProject retrieves a user's tasks within one project
func (r *TaskRepository) ListByProject(ctx context.Context, ownerID, projectID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1 AND project_id = $2 ORDER BY end_date ASC, created_at ASC`
	return r.list(ctx, query, ownerID, projectID)
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update replaces the mutable fields of a task, including its subtask list
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET project_id = $2, project_name = $3, name = $4, description = $5, status = $6, priority = $7,
			start_date = $8, end_date = $9, subtasks = $10, custom_reminders = $11, updated_at = $12
		WHERE id = $1
		RETURNING updated_at
	`

	subtasksJSON, reminders, err := encodeTaskCollections(task)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Project.ID,
		task.Project.Name,
		task.Name,
		task.Description,
		task.Status,
		task.Priority,
		task.StartDate,
		task.EndDate,
		subtasksJSON,
		reminders,
		time.Now(),
	).Scan(&task.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// Delete deletes a task by ID
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteByProject removes every task in a project
func (r *TaskRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = $1`, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// SyncProjectName rewrites the copied project name on tasks that are out of date
func (r *TaskRepository) SyncProjectName(ctx context.Context, projectID uuid.UUID, name string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET project_name = $2, updated_at = $3 WHERE project_id = $1 AND project_name <> $2`,
		projectID, name, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sync project name: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
