package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the reconciled access role vocabulary. The calendar and the
// user-management surfaces used to carry separate role sets; both map onto
// this one closed enumeration.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleScheduler  Role = "scheduler"
	RoleViewOnly   Role = "view_only"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleScheduler, RoleViewOnly:
		return true
	}
	return false
}

// IsAdmin reports whether the role may manage other accounts.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// CanWriteSchedule reports whether the role may mutate calendar data.
func (r Role) CanWriteSchedule() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleScheduler
}

// UserStatus is the account approval status gating access to everything
// beyond the auth surface.
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusApproved  UserStatus = "approved"
	UserStatusDenied    UserStatus = "denied"
	UserStatusSuspended UserStatus = "suspended"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusApproved, UserStatusDenied, UserStatusSuspended:
		return true
	}
	return false
}

// User is the authentication identity. Application-level attributes live
// on UserProfile, keyed 1:1 to this record.
type User struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Password         string     `db:"-" json:"password,omitempty"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	LoginAttempts    int        `db:"login_attempts" json:"-"`
	LastLoginAttempt *time.Time `db:"last_login_attempt" json:"-"`
	LastLoginAt      *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserProfile is the application profile: role, approval status, and the
// approval stamp trail.
type UserProfile struct {
	UserID     uuid.UUID  `db:"user_id" json:"userId"`
	Email      string     `db:"email" json:"email"`
	FullName   string     `db:"full_name" json:"fullName,omitempty"`
	Role       Role       `db:"role" json:"role"`
	Status     UserStatus `db:"status" json:"status"`
	ApprovedBy *uuid.UUID `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	Notes      string     `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}

// TokenResponse is returned by login/refresh. Degraded marks a session
// issued without a resolved profile; it carries a placeholder view_only
// role and a warning the UI must surface.
type TokenResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	Profile      *UserProfile `json:"profile,omitempty"`
	Degraded     bool         `json:"degraded,omitempty"`
	Warning      string       `json:"warning,omitempty"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ConfirmResetRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type UpdateProfileRequest struct {
	FullName *string `json:"fullName" binding:"omitempty,max=200"`
	Notes    *string `json:"notes" binding:"omitempty,max=2000"`
}

// CreateUserRequest is the privileged user-creation payload: an admin
// provisions an identity plus an already-approved profile in one call.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"max=200"`
	Role     Role   `json:"role" binding:"required,oneof=super_admin admin scheduler view_only"`
}

type UpdateUserStatusRequest struct {
	Status UserStatus `json:"status" binding:"required,oneof=approved denied suspended"`
	Notes  string     `json:"notes" binding:"max=2000"`
}
