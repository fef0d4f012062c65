package shift

import (
	"github.com/google/uuid"

	"github.com/clinicops/schedule-api/internal/model"
)

// maxOccurrences bounds expansion of a single series within one query so a
// wide date range cannot run away.
const maxOccurrences = 1000

// occurrenceID derives a stable id for a virtual occurrence from its
// template and date, so clients can key occurrences across refetches even
// though the rows never exist in the database.
func occurrenceID(templateID uuid.UUID, date model.Date) uuid.UUID {
	return uuid.NewSHA1(templateID, []byte(date.String()))
}

// expandSeries materializes the occurrences of a recurring template that
// fall inside [rangeStart, rangeEnd]. Dates present in skipDates (covered
// by an exception instance) are left out; the exception row itself is
// served as a concrete shift. Each occurrence keeps the template's span in
// days and times-of-day, drops the recurrence rule, and links back to the
// template.
func expandSeries(template *model.Shift, rangeStart, rangeEnd model.Date, skipDates map[string]bool) []*model.Shift {
	if !template.IsRecurring() {
		return nil
	}

	spanDays := int(template.EndDate.Sub(template.StartDate.Time).Hours() / 24)
	rule := *template.RecurrenceRule

	var occurrences []*model.Shift
	for i := 0; i < maxOccurrences; i++ {
		start := occurrenceStart(template.StartDate, rule, i)
		if start.After(rangeEnd.Time) {
			break
		}
		end := start.AddDays(spanDays)
		if end.Before(rangeStart.Time) {
			continue
		}
		if skipDates[start.String()] {
			continue
		}
		occurrences = append(occurrences, materialize(template, start, end))
	}
	return occurrences
}

func occurrenceStart(base model.Date, rule model.RecurrenceRule, n int) model.Date {
	switch rule {
	case model.RecurrenceDaily:
		return base.AddDays(n)
	case model.RecurrenceWeekly:
		return base.AddDays(n * 7)
	case model.RecurrenceBiweekly:
		return base.AddDays(n * 14)
	case model.RecurrenceMonthly:
		return base.AddMonths(n)
	}
	return base
}

func materialize(template *model.Shift, start, end model.Date) *model.Shift {
	occ := *template
	occ.ID = occurrenceID(template.ID, start)
	occ.StartDate = start
	occ.EndDate = end
	occ.RecurrenceRule = nil
	templateID := template.ID
	occ.OriginalRecurringShiftID = &templateID
	if template.SeriesID != nil {
		seriesID := *template.SeriesID
		occ.SeriesID = &seriesID
	} else {
		occ.SeriesID = &templateID
	}
	return &occ
}
