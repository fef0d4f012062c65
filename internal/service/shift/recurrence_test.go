package shift

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/schedule-api/internal/model"
)

func weeklyTemplate() *model.Shift {
	rule := model.RecurrenceWeekly
	id := uuid.New()
	return &model.Shift{
		ID:             id,
		ProviderID:     uuid.New(),
		StartDate:      model.NewDate(2026, time.March, 2), // a Monday
		EndDate:        model.NewDate(2026, time.March, 2),
		RecurrenceRule: &rule,
		SeriesID:       &id,
	}
}

func TestExpandSeriesWeekly(t *testing.T) {
	tpl := weeklyTemplate()

	occs := expandSeries(tpl,
		model.NewDate(2026, time.March, 1),
		model.NewDate(2026, time.March, 31),
		nil,
	)

	require.Len(t, occs, 5) // Mar 2, 9, 16, 23, 30
	assert.Equal(t, "2026-03-02", occs[0].StartDate.String())
	assert.Equal(t, "2026-03-30", occs[4].StartDate.String())

	for _, occ := range occs {
		assert.Nil(t, occ.RecurrenceRule, "occurrences are not templates")
		require.NotNil(t, occ.OriginalRecurringShiftID)
		assert.Equal(t, tpl.ID, *occ.OriginalRecurringShiftID)
		require.NotNil(t, occ.SeriesID)
		assert.Equal(t, tpl.ID, *occ.SeriesID)
		assert.NotEqual(t, tpl.ID, occ.ID)
	}
}

func TestExpandSeriesRuleCadence(t *testing.T) {
	tests := []struct {
		rule       model.RecurrenceRule
		secondDate string
	}{
		{model.RecurrenceDaily, "2026-03-03"},
		{model.RecurrenceWeekly, "2026-03-09"},
		{model.RecurrenceBiweekly, "2026-03-16"},
		{model.RecurrenceMonthly, "2026-04-02"},
	}

	for _, tt := range tests {
		t.Run(string(tt.rule), func(t *testing.T) {
			tpl := weeklyTemplate()
			rule := tt.rule
			tpl.RecurrenceRule = &rule

			occs := expandSeries(tpl,
				model.NewDate(2026, time.March, 1),
				model.NewDate(2026, time.April, 30),
				nil,
			)
			require.GreaterOrEqual(t, len(occs), 2)
			assert.Equal(t, "2026-03-02", occs[0].StartDate.String())
			assert.Equal(t, tt.secondDate, occs[1].StartDate.String())
		})
	}
}

func TestExpandSeriesWindowClipping(t *testing.T) {
	tpl := weeklyTemplate()

	// Window starts after the template's first two occurrences.
	occs := expandSeries(tpl,
		model.NewDate(2026, time.March, 15),
		model.NewDate(2026, time.March, 31),
		nil,
	)
	require.Len(t, occs, 3) // Mar 16, 23, 30
	assert.Equal(t, "2026-03-16", occs[0].StartDate.String())

	// Window entirely before the series begins.
	occs = expandSeries(tpl,
		model.NewDate(2026, time.January, 1),
		model.NewDate(2026, time.February, 28),
		nil,
	)
	assert.Empty(t, occs)
}

func TestExpandSeriesMultiDaySpan(t *testing.T) {
	tpl := weeklyTemplate()
	tpl.EndDate = tpl.StartDate.AddDays(2) // Mon-Wed block

	// An occurrence that starts before the window but spills into it is
	// still returned.
	occs := expandSeries(tpl,
		model.NewDate(2026, time.March, 3),
		model.NewDate(2026, time.March, 4),
		nil,
	)
	require.Len(t, occs, 1)
	assert.Equal(t, "2026-03-02", occs[0].StartDate.String())
	assert.Equal(t, "2026-03-04", occs[0].EndDate.String())
}

func TestExpandSeriesSkipsExceptionDates(t *testing.T) {
	tpl := weeklyTemplate()

	skip := map[string]bool{"2026-03-09": true}
	occs := expandSeries(tpl,
		model.NewDate(2026, time.March, 1),
		model.NewDate(2026, time.March, 31),
		skip,
	)

	require.Len(t, occs, 4)
	for _, occ := range occs {
		assert.NotEqual(t, "2026-03-09", occ.StartDate.String())
	}
}

func TestExpandSeriesNonRecurringTemplate(t *testing.T) {
	tpl := weeklyTemplate()
	tpl.RecurrenceRule = nil

	occs := expandSeries(tpl,
		model.NewDate(2026, time.January, 1),
		model.NewDate(2026, time.December, 31),
		nil,
	)
	assert.Nil(t, occs)
}

func TestOccurrenceIDsDeterministic(t *testing.T) {
	tplID := uuid.New()
	date := model.NewDate(2026, time.March, 9)

	a := occurrenceID(tplID, date)
	b := occurrenceID(tplID, date)
	assert.Equal(t, a, b, "same template and date must yield the same id")

	assert.NotEqual(t, a, occurrenceID(tplID, date.AddDays(7)))
	assert.NotEqual(t, a, occurrenceID(uuid.New(), date))
}

func TestExpandSeriesBoundsRunawayWindows(t *testing.T) {
	tpl := weeklyTemplate()
	rule := model.RecurrenceDaily
	tpl.RecurrenceRule = &rule

	occs := expandSeries(tpl,
		model.NewDate(2026, time.January, 1),
		model.NewDate(2036, time.January, 1),
		nil,
	)
	assert.Len(t, occs, maxOccurrences)
}
