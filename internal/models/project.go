package models

import (
	"time"

	"github.com/google/uuid"
)

// Project groups tasks for a single owner
type Project struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ref returns the reference stored on tasks assigned to this project
func (p *Project) Ref() ProjectRef {
	return ProjectRef{ID: p.ID, Name: p.Name}
}
