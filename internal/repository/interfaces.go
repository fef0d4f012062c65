package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicops/schedule-api/internal/model"
)

// ProviderRepository owns the providers table.
type ProviderRepository interface {
	Create(ctx context.Context, p *model.Provider) error
	Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	List(ctx context.Context) ([]*model.Provider, error)
	Update(ctx context.Context, p *model.Provider) error
	UpsertBatch(ctx context.Context, records []*model.Provider) error
	Delete(ctx context.Context, ids ...uuid.UUID) (int64, error)
}

// ClinicTypeRepository owns the clinic_types table.
type ClinicTypeRepository interface {
	Create(ctx context.Context, ct *model.ClinicType) error
	Get(ctx context.Context, id uuid.UUID) (*model.ClinicType, error)
	List(ctx context.Context) ([]*model.ClinicType, error)
	Update(ctx context.Context, ct *model.ClinicType) error
	UpsertBatch(ctx context.Context, records []*model.ClinicType) error
	Delete(ctx context.Context, ids ...uuid.UUID) (int64, error)
}

// MedicalAssistantRepository owns the medical_assistants table.
type MedicalAssistantRepository interface {
	Create(ctx context.Context, ma *model.MedicalAssistant) error
	Get(ctx context.Context, id uuid.UUID) (*model.MedicalAssistant, error)
	List(ctx context.Context) ([]*model.MedicalAssistant, error)
	Update(ctx context.Context, ma *model.MedicalAssistant) error
	UpsertBatch(ctx context.Context, records []*model.MedicalAssistant) error
	Delete(ctx context.Context, ids ...uuid.UUID) (int64, error)
}

// ShiftRepository owns the shifts table.
type ShiftRepository interface {
	Create(ctx context.Context, s *model.Shift) error
	Get(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	List(ctx context.Context) ([]*model.Shift, error)
	ListRange(ctx context.Context, start, end model.Date) ([]*model.Shift, error)
	ListSeries(ctx context.Context, seriesID uuid.UUID) ([]*model.Shift, error)
	Update(ctx context.Context, s *model.Shift) error
	UpsertBatch(ctx context.Context, records []*model.Shift) error
	Delete(ctx context.Context, ids ...uuid.UUID) (int64, error)
}

// UserRepository owns the users (auth identity) table.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, u *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

// UserProfileRepository owns the user_profiles table.
type UserProfileRepository interface {
	Create(ctx context.Context, p *model.UserProfile) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, p *model.UserProfile) error
	Get(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	List(ctx context.Context) ([]*model.UserProfile, error)
	Update(ctx context.Context, p *model.UserProfile) error
}

// AuditRepository owns the append-only audit_logs table.
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserSettingsRepository owns the user_settings table.
type UserSettingsRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.UserSettings, error)
	Upsert(ctx context.Context, s *model.UserSettings) error
}

// OutboxRepository owns the outbox_events table. Claiming and marking
// a batch happen inside one caller-held transaction so the SKIP LOCKED
// row locks hold for the whole drain.
type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
	GetPendingWithLockTx(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
