package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/clinicops/schedule-api/internal/model"
	"github.com/clinicops/schedule-api/internal/repository"
)

const shiftColumns = `
	id, provider_id, clinic_type_id, medical_assistant_ids,
	start_date, end_date, start_time, end_time, is_vacation,
	title, notes, color, recurrence_rule, series_id,
	original_recurring_shift_id, is_exception, exception_for_date,
	created_by_user_id, created_at, updated_at`

const shiftColumnCount = 20

type shiftRepository struct {
	BaseRepository
}

func NewShiftRepository(base BaseRepository) repository.ShiftRepository {
	return &shiftRepository{base}
}

func shiftArgs(s *model.Shift) []interface{} {
	return []interface{}{
		s.ID, s.ProviderID, s.ClinicTypeID, s.MedicalAssistantIDs,
		s.StartDate, s.EndDate, s.StartTime, s.EndTime, s.IsVacation,
		s.Title, s.Notes, s.Color, s.RecurrenceRule, s.SeriesID,
		s.OriginalRecurringShiftID, s.IsException, s.ExceptionForDate,
		s.CreatedByUserID, s.CreatedAt, s.UpdatedAt,
	}
}

func (r *shiftRepository) Create(ctx context.Context, s *model.Shift) error {
	query := `INSERT INTO shifts (` + shiftColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
	)`
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	if _, err := r.db.ExecContext(ctx, query, shiftArgs(s)...); err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}
	return nil
}

func (r *shiftRepository) Get(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	query := `SELECT` + shiftColumns + ` FROM shifts WHERE id = $1`
	var s model.Shift
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, notFoundOr(err, "shift")
	}
	return &s, nil
}

func (r *shiftRepository) List(ctx context.Context) ([]*model.Shift, error) {
	query := `SELECT` + shiftColumns + ` FROM shifts ORDER BY created_at ASC`
	var shifts []*model.Shift
	if err := r.db.SelectContext(ctx, &shifts, query); err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	return shifts, nil
}

// ListRange returns concrete rows overlapping [start, end], plus every
// series template regardless of its stored range: templates materialize
// occurrences beyond their anchor dates and are filtered by the caller
// during expansion.
func (r *shiftRepository) ListRange(ctx context.Context, start, end model.Date) ([]*model.Shift, error) {
	query := `SELECT` + shiftColumns + ` FROM shifts
		WHERE (start_date <= $2 AND end_date >= $1)
		   OR (recurrence_rule IS NOT NULL AND start_date <= $2)
		ORDER BY start_date ASC, created_at ASC`
	var shifts []*model.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to list shifts in range: %w", err)
	}
	return shifts, nil
}

func (r *shiftRepository) ListSeries(ctx context.Context, seriesID uuid.UUID) ([]*model.Shift, error) {
	query := `SELECT` + shiftColumns + ` FROM shifts
		WHERE series_id = $1
		ORDER BY created_at ASC`
	var shifts []*model.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, seriesID); err != nil {
		return nil, fmt.Errorf("failed to list series shifts: %w", err)
	}
	return shifts, nil
}

func (r *shiftRepository) Update(ctx context.Context, s *model.Shift) error {
	query := `
		UPDATE shifts SET
			provider_id = $1, clinic_type_id = $2, medical_assistant_ids = $3,
			start_date = $4, end_date = $5, start_time = $6, end_time = $7,
			is_vacation = $8, title = $9, notes = $10, color = $11,
			recurrence_rule = $12, series_id = $13,
			original_recurring_shift_id = $14, is_exception = $15,
			exception_for_date = $16, updated_at = $17
		WHERE id = $18
	`
	s.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		s.ProviderID, s.ClinicTypeID, s.MedicalAssistantIDs,
		s.StartDate, s.EndDate, s.StartTime, s.EndTime,
		s.IsVacation, s.Title, s.Notes, s.Color,
		s.RecurrenceRule, s.SeriesID,
		s.OriginalRecurringShiftID, s.IsException,
		s.ExceptionForDate, s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFoundOr(errNoRowsUpdated, "shift")
	}
	return nil
}

func (r *shiftRepository) UpsertBatch(ctx context.Context, records []*model.Shift) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO shifts (` + shiftColumns + `) VALUES `
	args := make([]interface{}, 0, len(records)*shiftColumnCount)
	now := time.Now()

	for i, s := range records {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now

		if i > 0 {
			query += ", "
		}
		base := i * shiftColumnCount
		query += "("
		for j := 0; j < shiftColumnCount; j++ {
			if j > 0 {
				query += ", "
			}
			query += fmt.Sprintf("$%d", base+j+1)
		}
		query += ")"
		args = append(args, shiftArgs(s)...)
	}

	query += `
		ON CONFLICT (id) DO UPDATE SET
			provider_id = EXCLUDED.provider_id,
			clinic_type_id = EXCLUDED.clinic_type_id,
			medical_assistant_ids = EXCLUDED.medical_assistant_ids,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			is_vacation = EXCLUDED.is_vacation,
			title = EXCLUDED.title,
			notes = EXCLUDED.notes,
			color = EXCLUDED.color,
			recurrence_rule = EXCLUDED.recurrence_rule,
			series_id = EXCLUDED.series_id,
			original_recurring_shift_id = EXCLUDED.original_recurring_shift_id,
			is_exception = EXCLUDED.is_exception,
			exception_for_date = EXCLUDED.exception_for_date,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert shifts: %w", err)
	}
	return nil
}

func (r *shiftRepository) Delete(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM shifts WHERE id = ANY($1)`

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}

	result, err := r.db.ExecContext(ctx, query, pq.Array(strs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete shifts: %w", err)
	}
	return result.RowsAffected()
}
