package model

import (
	"time"

	"github.com/google/uuid"
)

// ClinicType is a schedulable clinic/service category a shift can be
// booked against.
type ClinicType struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateClinicTypeRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Color    string `json:"color" binding:"omitempty,hexcolor"`
	IsActive *bool  `json:"isActive"`
}

type UpdateClinicTypeRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=200"`
	Color    *string `json:"color" binding:"omitempty,hexcolor"`
	IsActive *bool   `json:"isActive"`
}
