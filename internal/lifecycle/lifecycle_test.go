package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/benvon/smart-tasks/internal/models"
)

func TestDeriveStatusAfterSubtaskChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		current     models.TaskStatus
		subtasks    []models.Subtask
		manuallySet bool
		expected    models.TaskStatus
	}{
		{
			name:     "mixed subtasks yield ongoing",
			current:  models.TaskStatusTodo,
			subtasks: []models.Subtask{{Completed: true}, {Completed: false}},
			expected: models.TaskStatusOngoing,
		},
		{
			name:     "all subtasks completed yield completed",
			current:  models.TaskStatusOngoing,
			subtasks: []models.Subtask{{Completed: true}, {Completed: true}},
			expected: models.TaskStatusCompleted,
		},
		{
			name:     "reopening a subtask moves completed back to ongoing",
			current:  models.TaskStatusCompleted,
			subtasks: []models.Subtask{{Completed: true}, {Completed: false}},
			expected: models.TaskStatusOngoing,
		},
		{
			name:     "no subtasks keeps current",
			current:  models.TaskStatusCancelled,
			subtasks: nil,
			expected: models.TaskStatusCancelled,
		},
		{
			name:        "manual override wins",
			current:     models.TaskStatusTodo,
			subtasks:    []models.Subtask{{Completed: true}},
			manuallySet: true,
			expected:    models.TaskStatusTodo,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DeriveStatusAfterSubtaskChange(tt.current, tt.subtasks, tt.manuallySet)
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestDeriveStatusAfterSubtaskChange_Toggle(t *testing.T) {
	t.Parallel()

	subtasks := []models.Subtask{{Completed: true}, {Completed: false}}
	status := DeriveStatusAfterSubtaskChange(models.TaskStatusTodo, subtasks, false)
	if status != models.TaskStatusOngoing {
		t.Fatalf("Expected ongoing, got %s", status)
	}

	subtasks[1].Completed = true
	status = DeriveStatusAfterSubtaskChange(status, subtasks, false)
	if status != models.TaskStatusCompleted {
		t.Errorf("Expected completed after toggling, got %s", status)
	}
}

func TestValidateStatusTransition(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		target   models.TaskStatus
		endDate  time.Time
		subtasks []models.Subtask
		reason   string
	}{
		{
			name:    "overdue rejected when due later today",
			target:  models.TaskStatusOverdue,
			endDate: now.Add(2 * time.Hour),
			reason:  ReasonDueDateNotPassed,
		},
		{
			name:    "overdue rejected when due earlier today",
			target:  models.TaskStatusOverdue,
			endDate: now.Add(-2 * time.Hour),
			reason:  ReasonDueDateNotPassed,
		},
		{
			name:    "overdue rejected when due in the future",
			target:  models.TaskStatusOverdue,
			endDate: now.AddDate(0, 0, 3),
			reason:  ReasonDueDateNotPassed,
		},
		{
			name:    "overdue accepted when due yesterday",
			target:  models.TaskStatusOverdue,
			endDate: now.AddDate(0, 0, -1),
		},
		{
			name:     "completed rejected with open subtask",
			target:   models.TaskStatusCompleted,
			endDate:  now,
			subtasks: []models.Subtask{{Completed: true}, {Completed: false}},
			reason:   ReasonSubtasksUnfinished,
		},
		{
			name:     "completed accepted with all subtasks done",
			target:   models.TaskStatusCompleted,
			subtasks: []models.Subtask{{Completed: true}},
		},
		{
			name:   "completed accepted without subtasks",
			target: models.TaskStatusCompleted,
		},
		{
			name:     "cancelled always accepted",
			target:   models.TaskStatusCancelled,
			subtasks: []models.Subtask{{Completed: false}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStatusTransition(tt.target, tt.endDate, tt.subtasks, now, time.UTC)
			if tt.reason == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			var transitionErr *TransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("Expected TransitionError, got %v", err)
			}
			if transitionErr.Reason != tt.reason {
				t.Errorf("Expected reason %q, got %q", tt.reason, transitionErr.Reason)
			}
		})
	}
}

func TestValidateStatusTransition_UsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+10", 10*60*60)
	// 2026-03-10 20:00 UTC is already 2026-03-11 in UTC+10
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	endDate := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := ValidateStatusTransition(models.TaskStatusOverdue, endDate, nil, now, time.UTC); err == nil {
		t.Error("Expected rejection in UTC where the due date is today")
	}
	if err := ValidateStatusTransition(models.TaskStatusOverdue, endDate, nil, now, loc); err != nil {
		t.Errorf("Expected acceptance in UTC+10 where the due date was yesterday, got %v", err)
	}
}

func TestDaysUntil(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		target   time.Time
		expected int
	}{
		{"same day", time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC), 0},
		{"tomorrow early", time.Date(2026, 3, 11, 0, 15, 0, 0, time.UTC), 1},
		{"tomorrow late", time.Date(2026, 3, 11, 23, 59, 0, 0, time.UTC), 1},
		{"two days", time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC), 2},
		{"yesterday", time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC), -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DaysUntil(tt.target, now, time.UTC); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}
