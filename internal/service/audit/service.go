package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
	"github.com/clinicops/schedule-api/pkg/auth"
	"github.com/clinicops/schedule-api/pkg/metrics"
)

const writeTimeout = 5 * time.Second

// Service appends audit trail entries. Writes are asynchronous and
// best-effort: a failed append is counted and logged, never surfaced to
// the mutation it describes.
type Service struct {
	repo    repository.AuditRepository
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(repo repository.AuditRepository, logger *zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{repo: repo, logger: logger, metrics: m}
}

// Record appends an entry attributed to the actor and request found in
// ctx. Old and new values are marshalled as JSON snapshots; pass nil for
// actions without a before or after state.
func (s *Service) Record(ctx context.Context, action, entityType string, entityID *uuid.UUID, oldValues, newValues interface{}) {
	entry := &model.AuditLog{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}

	if claims, ok := auth.ClaimsFromContext(ctx); ok {
		uid := claims.UserID
		entry.UserID = &uid
		entry.UserEmail = claims.Email
	}
	meta := auth.RequestMetaFromContext(ctx)
	entry.IPAddress = meta.IPAddress
	entry.UserAgent = meta.UserAgent
	entry.RequestID = meta.RequestID

	var err error
	if oldValues != nil {
		if entry.OldValues, err = json.Marshal(oldValues); err != nil {
			s.drop(action, err)
			return
		}
	}
	if newValues != nil {
		if entry.NewValues, err = json.Marshal(newValues); err != nil {
			s.drop(action, err)
			return
		}
	}

	go func() {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()

		s.metrics.AuditWrites.WithLabelValues(action).Inc()
		if err := s.repo.Create(writeCtx, entry); err != nil {
			s.drop(action, err)
		}
	}()
}

func (s *Service) drop(action string, err error) {
	s.metrics.AuditWritesFailed.Inc()
	s.logger.Warn().Err(err).Str("action", action).Msg("dropped audit log entry")
}

// List returns entries matching the filters plus the unpaginated total.
func (s *Service) List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, int64, error) {
	return s.repo.List(ctx, filters)
}

// Cleanup deletes entries older than the cutoff, returning how many rows
// were removed.
func (s *Service) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, cutoff)
}
