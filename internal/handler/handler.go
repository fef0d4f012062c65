// Package handler holds the HTTP surface. Subpackages register one
// route group each; this package carries the shared request helpers.
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/clinicops/schedule-api/pkg/errors"
)

// BulkDeleteRequest is the shared bulk-delete payload.
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

// ParseUUIDParam parses a path parameter as a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("invalid "+name+" parameter", err)
	}
	return id, nil
}
