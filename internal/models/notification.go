package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies which rule produced a feed entry
type NotificationType string

const (
	NotificationTypeReminder    NotificationType = "reminder"
	NotificationTypeDueTomorrow NotificationType = "due_tomorrow"
	NotificationTypeOverdue     NotificationType = "overdue"
)

// Notification is an entry in a user's notification feed
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Type      NotificationType `json:"type"`
	TaskID    *uuid.UUID       `json:"task_id,omitempty"`
	ProjectID *uuid.UUID       `json:"project_id,omitempty"`
}
