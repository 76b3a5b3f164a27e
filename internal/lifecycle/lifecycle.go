// Package lifecycle holds the rules that tie a task's status to its
// subtasks and due date.
package lifecycle

import (
	"time"

	"github.com/benvon/smart-tasks/internal/models"
)

const (
	// ReasonDueDateNotPassed is returned when overdue is requested for a task that is not late
	ReasonDueDateNotPassed = "the due date has not passed yet"
	// ReasonSubtasksUnfinished is returned when completion is requested with open subtasks
	ReasonSubtasksUnfinished = "not all subtasks are finished"
)

// TransitionError reports a status change rejected by the lifecycle rules
type TransitionError struct {
	Target models.TaskStatus
	Reason string
}

func (e *TransitionError) Error() string {
	return "cannot set status to " + string(e.Target) + ": " + e.Reason
}

// AllSubtasksCompleted reports whether every subtask is done.
// An empty list yields false.
func AllSubtasksCompleted(subtasks []models.Subtask) bool {
	if len(subtasks) == 0 {
		return false
	}
	for _, st := range subtasks {
		if !st.Completed {
			return false
		}
	}
	return true
}

// IsTerminal reports whether a status ends a task's lifecycle
func IsTerminal(status models.TaskStatus) bool {
	return status == models.TaskStatusCompleted || status == models.TaskStatusCancelled
}

// DeriveStatusAfterSubtaskChange returns the status a task should take after its
// subtasks were edited. A status set manually in the same change always wins.
func DeriveStatusAfterSubtaskChange(current models.TaskStatus, subtasks []models.Subtask, manuallySet bool) models.TaskStatus {
	if manuallySet || len(subtasks) == 0 {
		return current
	}
	if AllSubtasksCompleted(subtasks) {
		return models.TaskStatusCompleted
	}
	return models.TaskStatusOngoing
}

// ValidateStatusTransition checks whether target may be set on a task with the
// given due date and subtasks. "Today" is evaluated in loc.
func ValidateStatusTransition(target models.TaskStatus, endDate time.Time, subtasks []models.Subtask, now time.Time, loc *time.Location) error {
	switch target {
	case models.TaskStatusOverdue:
		if endDate.IsZero() || !StartOfDay(endDate, loc).Before(StartOfDay(now, loc)) {
			return &TransitionError{Target: target, Reason: ReasonDueDateNotPassed}
		}
	case models.TaskStatusCompleted:
		if len(subtasks) > 0 && !AllSubtasksCompleted(subtasks) {
			return &TransitionError{Target: target, Reason: ReasonSubtasksUnfinished}
		}
	}
	return nil
}

// StartOfDay truncates t to local midnight in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysUntil returns the number of calendar days from now to t in loc.
// Rounding absorbs daylight-saving shifts.
func DaysUntil(t, now time.Time, loc *time.Location) int {
	diff := StartOfDay(t, loc).Sub(StartOfDay(now, loc))
	days := diff.Hours() / 24
	if days < 0 {
		return int(days - 0.5)
	}
	return int(days + 0.5)
}
