package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/clinicops/schedule-api/internal/repository"
)

// AuditCleanupWorker trims audit entries and processed outbox events past
// their retention window on a cron schedule.
type AuditCleanupWorker struct {
	auditRepo     repository.AuditRepository
	outboxRepo    repository.OutboxRepository
	retentionDays int
	schedule      string
	logger        *zerolog.Logger
	cron          *cron.Cron
}

func NewAuditCleanupWorker(
	auditRepo repository.AuditRepository,
	outboxRepo repository.OutboxRepository,
	retentionDays int,
	schedule string,
	logger *zerolog.Logger,
) *AuditCleanupWorker {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	if schedule == "" {
		schedule = "0 3 * * *"
	}
	return &AuditCleanupWorker{
		auditRepo:     auditRepo,
		outboxRepo:    outboxRepo,
		retentionDays: retentionDays,
		schedule:      schedule,
		logger:        logger,
	}
}

func (w *AuditCleanupWorker) Start(ctx context.Context) error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.schedule, func() { w.cleanup(ctx) }); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info().Str("schedule", w.schedule).Int("retention_days", w.retentionDays).Msg("audit cleanup scheduled")

	go func() {
		<-ctx.Done()
		w.cron.Stop()
	}()
	return nil
}

func (w *AuditCleanupWorker) cleanup(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	removed, err := w.auditRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Msg("audit log cleanup failed")
	} else {
		w.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("audit logs trimmed")
	}

	removed, err = w.outboxRepo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Msg("outbox cleanup failed")
	} else {
		w.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("processed outbox events trimmed")
	}
}
