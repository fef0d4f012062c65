package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only record of a tracked action. Entries are
// written best-effort alongside mutations and never updated or deleted by
// the application; only the retention worker trims them.
type AuditLog struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	UserID     *uuid.UUID      `db:"user_id" json:"userId,omitempty"`
	UserEmail  string          `db:"user_email" json:"userEmail,omitempty"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   *uuid.UUID      `db:"entity_id" json:"entityId,omitempty"`
	OldValues  json.RawMessage `db:"old_values" json:"oldValues,omitempty"`
	NewValues  json.RawMessage `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent  string          `db:"user_agent" json:"userAgent,omitempty"`
	RequestID  string          `db:"request_id" json:"requestId,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

const (
	AuditActionCreate   = "create"
	AuditActionUpdate   = "update"
	AuditActionDelete   = "delete"
	AuditActionBulkSave = "bulk_save"
	AuditActionLogin    = "login"
	AuditActionLogout   = "logout"
	AuditActionApprove  = "approve"
	AuditActionDeny     = "deny"
	AuditActionSuspend  = "suspend"

	AuditEntityProvider         = "providers"
	AuditEntityClinicType       = "clinic_types"
	AuditEntityMedicalAssistant = "medical_assistants"
	AuditEntityShift            = "shifts"
	AuditEntityUserProfile      = "user_profiles"
	AuditEntityUserSettings     = "user_settings"
	AuditEntityAuth             = "auth"
)

// AuditLogFilters narrows audit listings.
type AuditLogFilters struct {
	UserID     *uuid.UUID `form:"userId"`
	EntityType string     `form:"entityType"`
	Action     string     `form:"action"`
	StartDate  *time.Time `form:"startDate"`
	EndDate    *time.Time `form:"endDate"`
	Pagination
}
