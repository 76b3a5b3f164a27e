package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID                   uuid.UUID `json:"id"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	PasswordHash         string    `json:"-"`
	EmailVerified        bool      `json:"email_verified"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	PushSubscriptionID   *string   `json:"push_subscription_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Ref returns the owner reference stored on the user's tasks
func (u *User) Ref() OwnerRef {
	return OwnerRef{ID: u.ID, Name: u.Name}
}
