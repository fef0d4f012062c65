package model

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/schedule-api/pkg/validator"
)

type RecurrenceRule string

const (
	RecurrenceDaily    RecurrenceRule = "daily"
	RecurrenceWeekly   RecurrenceRule = "weekly"
	RecurrenceBiweekly RecurrenceRule = "biweekly"
	RecurrenceMonthly  RecurrenceRule = "monthly"
)

func (r RecurrenceRule) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
		return true
	}
	return false
}

var (
	ErrShiftProviderRequired  = errors.New("shift requires a provider")
	ErrShiftDatesRequired     = errors.New("shift requires start and end dates")
	ErrShiftEndBeforeStart    = errors.New("shift end must not precede start")
	ErrVacationWithTimes      = errors.New("vacation shift cannot carry a time-of-day range")
	ErrShiftHalfTimeRange     = errors.New("shift time-of-day range requires both start and end times")
	ErrInvalidRecurrenceRule  = errors.New("invalid recurrence rule")
	ErrInvalidTimeOfDay       = errors.New("time of day must be a zero-padded HH:MM value")
	ErrIncompleteException    = errors.New("exception instance requires series id and exception date")
)

// Shift is a calendar entry assigning a provider (and optionally a clinic
// type and medical assistants) to a date range. A shift with a recurrence
// rule is a series template; an exception instance supersedes one
// occurrence of its series.
type Shift struct {
	ID                       uuid.UUID       `db:"id" json:"id"`
	ProviderID               uuid.UUID       `db:"provider_id" json:"providerId"`
	ClinicTypeID             *uuid.UUID      `db:"clinic_type_id" json:"clinicTypeId,omitempty"`
	MedicalAssistantIDs      UUIDList        `db:"medical_assistant_ids" json:"medicalAssistantIds,omitempty"`
	StartDate                Date            `db:"start_date" json:"startDate"`
	EndDate                  Date            `db:"end_date" json:"endDate"`
	StartTime                *string         `db:"start_time" json:"startTime,omitempty"`
	EndTime                  *string         `db:"end_time" json:"endTime,omitempty"`
	IsVacation               bool            `db:"is_vacation" json:"isVacation"`
	Title                    string          `db:"title" json:"title,omitempty"`
	Notes                    string          `db:"notes" json:"notes,omitempty"`
	Color                    string          `db:"color" json:"color,omitempty"`
	RecurrenceRule           *RecurrenceRule `db:"recurrence_rule" json:"recurrenceRule,omitempty"`
	SeriesID                 *uuid.UUID      `db:"series_id" json:"seriesId,omitempty"`
	OriginalRecurringShiftID *uuid.UUID      `db:"original_recurring_shift_id" json:"originalRecurringShiftId,omitempty"`
	IsException              bool            `db:"is_exception" json:"isException"`
	ExceptionForDate         *Date           `db:"exception_for_date" json:"exceptionForDate,omitempty"`
	CreatedByUserID          *uuid.UUID      `db:"created_by_user_id" json:"createdByUserId,omitempty"`
	CreatedAt                time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time       `db:"updated_at" json:"updatedAt"`
}

// Normalize puts the record into canonical form so two logically equal
// shifts compare equal: assistant references are order-insignificant.
func (s *Shift) Normalize() {
	s.MedicalAssistantIDs = s.MedicalAssistantIDs.Normalize()
}

// IsRecurring reports whether the shift is a series template.
func (s *Shift) IsRecurring() bool {
	return s.RecurrenceRule != nil
}

// Validate enforces the shift invariants at the write boundary.
func (s *Shift) Validate() error {
	if s.ProviderID == uuid.Nil {
		return ErrShiftProviderRequired
	}
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return ErrShiftDatesRequired
	}
	if s.EndDate.Before(s.StartDate.Time) {
		return ErrShiftEndBeforeStart
	}

	if s.IsVacation {
		if s.StartTime != nil || s.EndTime != nil {
			return ErrVacationWithTimes
		}
	} else {
		if (s.StartTime == nil) != (s.EndTime == nil) {
			return ErrShiftHalfTimeRange
		}
		if s.StartTime != nil {
			if !validator.IsTimeOfDay(*s.StartTime) || !validator.IsTimeOfDay(*s.EndTime) {
				return ErrInvalidTimeOfDay
			}
			// Zero-padded HH:MM values order correctly as strings. Only
			// compare within a single day; multi-day shifts wrap overnight.
			if s.EndDate.Equal(s.StartDate.Time) && *s.EndTime < *s.StartTime {
				return ErrShiftEndBeforeStart
			}
		}
	}

	if s.RecurrenceRule != nil && !s.RecurrenceRule.Valid() {
		return ErrInvalidRecurrenceRule
	}

	if s.IsException && (s.SeriesID == nil || s.ExceptionForDate == nil) {
		return ErrIncompleteException
	}

	return nil
}

type CreateShiftRequest struct {
	ProviderID          uuid.UUID       `json:"providerId" binding:"required"`
	ClinicTypeID        *uuid.UUID      `json:"clinicTypeId"`
	MedicalAssistantIDs UUIDList        `json:"medicalAssistantIds"`
	StartDate           Date            `json:"startDate" binding:"required"`
	EndDate             Date            `json:"endDate" binding:"required"`
	StartTime           *string         `json:"startTime" binding:"omitempty,timeofday"`
	EndTime             *string         `json:"endTime" binding:"omitempty,timeofday"`
	IsVacation          bool            `json:"isVacation"`
	Title               string          `json:"title" binding:"max=300"`
	Notes               string          `json:"notes" binding:"max=2000"`
	Color               string          `json:"color" binding:"omitempty,hexcolor"`
	RecurrenceRule      *RecurrenceRule `json:"recurrenceRule"`
}

type CreateShiftExceptionRequest struct {
	Date                Date       `json:"date" binding:"required"`
	ProviderID          *uuid.UUID `json:"providerId"`
	ClinicTypeID        *uuid.UUID `json:"clinicTypeId"`
	MedicalAssistantIDs UUIDList   `json:"medicalAssistantIds"`
	StartTime           *string    `json:"startTime" binding:"omitempty,timeofday"`
	EndTime             *string    `json:"endTime" binding:"omitempty,timeofday"`
	Title               string     `json:"title" binding:"max=300"`
	Notes               string     `json:"notes" binding:"max=2000"`
}

// ShiftRange is the calendar window queried by the UI.
type ShiftRange struct {
	Start  Date `form:"start" json:"start"`
	End    Date `form:"end" json:"end"`
	Expand bool `form:"expand" json:"expand"`
}
