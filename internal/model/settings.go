package model

import (
	"time"

	"github.com/google/uuid"
)

// UserSettings is a per-user settings document for calendar preferences
// (default view, visible providers, week start, and so on). Stored as an
// opaque JSON blob; the server does not interpret individual keys.
type UserSettings struct {
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Settings  JSONMap   `db:"settings" json:"settings"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
