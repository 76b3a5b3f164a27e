package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusTodo      TaskStatus = "todo"
	TaskStatusOngoing   TaskStatus = "ongoing"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusOverdue   TaskStatus = "overdue"
)

// TaskStatuses lists every status in display order
var TaskStatuses = []TaskStatus{
	TaskStatusTodo,
	TaskStatusOngoing,
	TaskStatusCompleted,
	TaskStatusCancelled,
	TaskStatusOverdue,
}

// Valid reports whether s is a known status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusOngoing, TaskStatusCompleted, TaskStatusCancelled, TaskStatusOverdue:
		return true
	}
	return false
}

// TaskPriority represents how urgent a task is
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// ProjectRef is the project reference copied onto a task when it is assigned.
// The name is not updated when the project is renamed.
type ProjectRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// OwnerRef is the owning user reference copied onto a task
type OwnerRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Subtask is a checklist item owned by a task
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title" validate:"required,max=200"`
	Completed bool   `json:"completed"`
}

// Task represents a unit of work owned by a user within a project
type Task struct {
	ID              uuid.UUID    `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Project         ProjectRef   `json:"project"`
	Owner           OwnerRef     `json:"owner"`
	Status          TaskStatus   `json:"status"`
	Priority        TaskPriority `json:"priority"`
	StartDate       time.Time    `json:"start_date"`
	EndDate         time.Time    `json:"end_date"`
	Subtasks        []Subtask    `json:"subtasks"`
	CustomReminders []int        `json:"custom_reminders"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// HasDueDate reports whether the task carries an end date
func (t *Task) HasDueDate() bool {
	return !t.EndDate.IsZero()
}

// NormalizeSubtaskIDs replaces missing or client-generated temporary
// subtask ids with fresh UUIDs.
func (t *Task) NormalizeSubtaskIDs() {
	for i := range t.Subtasks {
		if _, err := uuid.Parse(t.Subtasks[i].ID); err != nil {
			t.Subtasks[i].ID = uuid.New().String()
		}
	}
}

// TaskCounts aggregates a task list by status
type TaskCounts struct {
	Total     int `json:"total"`
	Todo      int `json:"todo"`
	Ongoing   int `json:"ongoing"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Overdue   int `json:"overdue"`
}

// CountTasks tallies tasks per status
func CountTasks(tasks []*Task) TaskCounts {
	counts := TaskCounts{Total: len(tasks)}
	for _, task := range tasks {
		switch task.Status {
		case TaskStatusTodo:
			counts.Todo++
		case TaskStatusOngoing:
			counts.Ongoing++
		case TaskStatusCompleted:
			counts.Completed++
		case TaskStatusCancelled:
			counts.Cancelled++
		case TaskStatusOverdue:
			counts.Overdue++
		}
	}
	return counts
}
