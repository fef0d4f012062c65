package model

import (
	"time"

	"github.com/google/uuid"
)

// Provider is a schedulable healthcare provider shown on the calendar.
// Providers are soft-disabled via IsActive rather than deleted in the
// normal flow.
type Provider struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateProviderRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Color    string `json:"color" binding:"omitempty,hexcolor"`
	IsActive *bool  `json:"isActive"`
}

type UpdateProviderRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=200"`
	Color    *string `json:"color" binding:"omitempty,hexcolor"`
	IsActive *bool   `json:"isActive"`
}
