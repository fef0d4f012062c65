// Package event records entity change notifications in the transactional
// outbox. A worker drains the outbox to the message broker, from which
// calendar clients learn to refresh their views.
package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
)

type Service struct {
	outboxRepo repository.OutboxRepository
	logger     *zerolog.Logger
}

func NewService(outboxRepo repository.OutboxRepository, logger *zerolog.Logger) *Service {
	return &Service{outboxRepo: outboxRepo, logger: logger}
}

// Emit records a change event for later delivery. The event rides the
// same database as the mutation it describes, so it is never lost to a
// broker outage.
func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// EmitChange records an entity mutation. Failures are logged and dropped:
// notifications are advisory and must not fail the write they describe.
func (s *Service) EmitChange(ctx context.Context, action, entityType string, entityID *uuid.UUID, record interface{}) {
	change := &model.ChangeEvent{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Record:     record,
	}
	if err := s.Emit(ctx, entityType+"."+action, change); err != nil {
		s.logger.Warn().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Msg("dropped change event")
	}
}
