package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func validShift() *Shift {
	return &Shift{
		ID:         uuid.New(),
		ProviderID: uuid.New(),
		StartDate:  NewDate(2026, time.March, 2),
		EndDate:    NewDate(2026, time.March, 2),
		StartTime:  strPtr("08:00"),
		EndTime:    strPtr("17:00"),
	}
}

func TestShiftValidate(t *testing.T) {
	rule := RecurrenceWeekly
	badRule := RecurrenceRule("fortnightly")
	seriesID := uuid.New()
	excDate := NewDate(2026, time.March, 9)

	tests := []struct {
		name    string
		mutate  func(*Shift)
		wantErr error
	}{
		{
			name:   "valid timed shift",
			mutate: func(s *Shift) {},
		},
		{
			name: "valid all-day shift",
			mutate: func(s *Shift) {
				s.StartTime = nil
				s.EndTime = nil
			},
		},
		{
			name: "valid multi-day overnight shift",
			mutate: func(s *Shift) {
				s.EndDate = s.StartDate.AddDays(1)
				s.StartTime = strPtr("20:00")
				s.EndTime = strPtr("08:00")
			},
		},
		{
			name:    "missing provider",
			mutate:  func(s *Shift) { s.ProviderID = uuid.Nil },
			wantErr: ErrShiftProviderRequired,
		},
		{
			name:    "missing dates",
			mutate:  func(s *Shift) { s.StartDate = Date{}; s.EndDate = Date{} },
			wantErr: ErrShiftDatesRequired,
		},
		{
			name:    "end date before start date",
			mutate:  func(s *Shift) { s.EndDate = s.StartDate.AddDays(-1) },
			wantErr: ErrShiftEndBeforeStart,
		},
		{
			name: "end time before start time same day",
			mutate: func(s *Shift) {
				s.StartTime = strPtr("17:00")
				s.EndTime = strPtr("08:00")
			},
			wantErr: ErrShiftEndBeforeStart,
		},
		{
			name: "vacation with times",
			mutate: func(s *Shift) {
				s.IsVacation = true
			},
			wantErr: ErrVacationWithTimes,
		},
		{
			name: "vacation without times is fine",
			mutate: func(s *Shift) {
				s.IsVacation = true
				s.StartTime = nil
				s.EndTime = nil
			},
		},
		{
			name:    "start time without end time",
			mutate:  func(s *Shift) { s.EndTime = nil },
			wantErr: ErrShiftHalfTimeRange,
		},
		{
			name:    "end time without start time",
			mutate:  func(s *Shift) { s.StartTime = nil },
			wantErr: ErrShiftHalfTimeRange,
		},
		{
			name: "malformed time of day",
			mutate: func(s *Shift) {
				s.StartTime = strPtr("8:00")
				s.EndTime = strPtr("17:00")
			},
			wantErr: ErrInvalidTimeOfDay,
		},
		{
			name:   "valid recurrence rule",
			mutate: func(s *Shift) { s.RecurrenceRule = &rule },
		},
		{
			name:    "unknown recurrence rule",
			mutate:  func(s *Shift) { s.RecurrenceRule = &badRule },
			wantErr: ErrInvalidRecurrenceRule,
		},
		{
			name:    "exception missing series metadata",
			mutate:  func(s *Shift) { s.IsException = true },
			wantErr: ErrIncompleteException,
		},
		{
			name: "complete exception",
			mutate: func(s *Shift) {
				s.IsException = true
				s.SeriesID = &seriesID
				s.ExceptionForDate = &excDate
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validShift()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecurrenceRuleValid(t *testing.T) {
	for _, r := range []RecurrenceRule{RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly} {
		assert.True(t, r.Valid(), string(r))
	}
	assert.False(t, RecurrenceRule("yearly").Valid())
	assert.False(t, RecurrenceRule("").Valid())
}

func TestShiftNormalizeSortsAssistants(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	s1 := validShift()
	s1.MedicalAssistantIDs = UUIDList{b, a}
	s1.Normalize()

	s2 := validShift()
	s2.MedicalAssistantIDs = UUIDList{a, b}
	s2.Normalize()

	assert.Equal(t, s2.MedicalAssistantIDs, s1.MedicalAssistantIDs)
}

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", d.String())

	_, err = ParseDate("03/02/2026")
	assert.Error(t, err)

	var decoded Date
	require.NoError(t, decoded.UnmarshalJSON([]byte(`"2026-12-31"`)))
	assert.Equal(t, NewDate(2026, time.December, 31), decoded)

	out, err := decoded.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2026-12-31"`, string(out))
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2026, time.January, 31)
	assert.Equal(t, NewDate(2026, time.February, 1), d.AddDays(1))
	// Go normalizes month overflow: Jan 31 + 1 month lands in March.
	assert.Equal(t, NewDate(2026, time.March, 3), d.AddMonths(1))
}
