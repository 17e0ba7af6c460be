package titration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Generate lays the protocol's steps out on the calendar starting at start's
// calendar date. Phases come back in step order. A step with zero duration is
// open-ended and leaves the cursor where it is.
func Generate(p Protocol, start time.Time) []Phase {
	phases := make([]Phase, 0, len(p.Steps))
	cursor := dateOf(start)

	for _, step := range p.Steps {
		phase := Phase{Step: step, StartDate: cursor}

		if step.DurationWeeks > 0 {
			end := cursor.AddDate(0, 0, step.DurationWeeks*7-1)
			phase.EndDate = &end
			cursor = end.AddDate(0, 0, 1)
		}

		phases = append(phases, phase)
	}

	return phases
}

func CurrentPhase(phases []Phase, now time.Time) (Phase, bool) {
	for _, ph := range phases {
		if ph.IsCurrent(now) {
			return ph, true
		}
	}
	return Phase{}, false
}

const exportDateLayout = "Jan 2, 2006"

// ExportText renders one block per phase, separated by a blank line:
//
//	Week 1: 0.25mg - Starting Jan 1, 2025 to Jan 28, 2025
//	  Notes: starting dose
//
// Every block carries the Notes line; a step without notes gets a bare
// "  Notes:".
func ExportText(phases []Phase) string {
	var b strings.Builder

	for i, ph := range phases {
		if i > 0 {
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "Week %d: %s%s - Starting %s",
			ph.Step.StartWeek, FormatDose(ph.Step.Dose), ph.Step.Unit, ph.StartDate.Format(exportDateLayout))
		if ph.EndDate != nil {
			fmt.Fprintf(&b, " to %s", ph.EndDate.Format(exportDateLayout))
		} else {
			b.WriteString(" (ongoing)")
		}
		b.WriteString("\n")

		b.WriteString(strings.TrimRight("  Notes: "+ph.Step.Notes, " "))
		b.WriteString("\n")
	}

	return b.String()
}

func FormatDose(dose float64) string {
	return strconv.FormatFloat(dose, 'f', -1, 64)
}

var allWeekdays = []time.Weekday{
	time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
}

// CalendarEntries maps each phase to a recurring calendar entry. Daily
// protocols recur on every weekday; weekly ones on the given weekday, which
// must then be set.
func CalendarEntries(p Protocol, phases []Phase, weekday *time.Weekday) ([]CalendarEntry, error) {
	var days []time.Weekday
	if p.Frequency == FrequencyDaily {
		days = allWeekdays
	} else {
		if weekday == nil {
			return nil, ErrWeekdayRequired
		}
		if *weekday < time.Sunday || *weekday > time.Saturday {
			return nil, fmt.Errorf("invalid weekday %d", *weekday)
		}
		days = []time.Weekday{*weekday}
	}

	entries := make([]CalendarEntry, 0, len(phases))
	for _, ph := range phases {
		end := ph.StartDate.AddDate(0, 0, OngoingCalendarDays)
		if ph.EndDate != nil {
			end = *ph.EndDate
		}

		entries = append(entries, CalendarEntry{
			Title:       fmt.Sprintf("%s: %s%s", p.Name, FormatDose(ph.Step.Dose), ph.Step.Unit),
			Description: ph.Step.Notes,
			StartDate:   ph.StartDate,
			EndDate:     end,
			Weekdays:    append([]time.Weekday(nil), days...),
		})
	}

	return entries, nil
}
