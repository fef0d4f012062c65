package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
	"github.com/clinicops/schedule-api/pkg/messaging"
	"github.com/clinicops/schedule-api/pkg/metrics"
)

// changeChannel is the broker channel calendar clients subscribe to.
const changeChannel = "schedule.changes"

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// OutboxProcessor drains pending outbox events to the broker. Events that
// fail to publish are retried with a delay and marked failed after
// MaxRetries attempts.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *zerolog.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: m,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info().Msg("starting outbox processor")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("stopping outbox processor")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error().Err(err).Msg("failed to process outbox batch")
			}
		}
	}
}

// processBatch claims and drains one batch inside a single transaction.
// The SKIP LOCKED row locks hold until the commit, so a concurrent
// worker cannot pick up the same batch mid-drain.
func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	return p.repo.WithTx(ctx, func(tx *sqlx.Tx) error {
		events, err := p.repo.GetPendingWithLockTx(ctx, tx, p.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch pending events: %w", err)
		}

		for _, event := range events {
			p.processEvent(ctx, tx, event)
		}
		return nil
	})
}

func (p *OutboxProcessor) processEvent(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) {
	if err := p.broker.Publish(ctx, changeChannel, event); err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		p.handlePublishFailure(ctx, tx, event, err)
		return
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
		p.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark event processed")
	}
}

func (p *OutboxProcessor) handlePublishFailure(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent, cause error) {
	msg := cause.Error()

	if event.RetryCount+1 >= p.config.MaxRetries {
		p.logger.Error().Err(cause).
			Str("event_id", event.ID.String()).
			Int("retries", event.RetryCount).
			Msg("outbox event exhausted retries")
		if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusFailed, &msg, nil); err != nil {
			p.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark event failed")
		}
		return
	}

	retryAt := time.Now().Add(p.config.RetryDelay)
	p.logger.Warn().Err(cause).
		Str("event_id", event.ID.String()).
		Time("retry_at", retryAt).
		Msg("outbox publish failed, scheduling retry")
	if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusPending, &msg, &retryAt); err != nil {
		p.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to schedule event retry")
	}
}
