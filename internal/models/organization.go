package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a tenant. Each organization owns at most one table document.
type Organization struct {
	OrgID     uuid.UUID `json:"id"` // UUIDv7
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedBy uuid.UUID `json:"createdBy"` // UUIDv7, the user who created it
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
