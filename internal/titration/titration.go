package titration

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// OngoingCalendarDays bounds an open-ended phase when it is written to a calendar.
const OngoingCalendarDays = 28

var (
	ErrMalformedProtocol = errors.New("malformed protocol")
	ErrUnknownProtocol   = errors.New("unknown protocol")
	ErrWeekdayRequired   = errors.New("weekday is required for weekly protocols")
)

type DoseStep struct {
	StartWeek     int     `json:"start_week" yaml:"start_week" validate:"min=1"`
	DurationWeeks int     `json:"duration_weeks" yaml:"duration_weeks" validate:"min=0"`
	Dose          float64 `json:"dose" yaml:"dose" validate:"gt=0"`
	Unit          string  `json:"unit" yaml:"unit" validate:"required"`
	Notes         string  `json:"notes" yaml:"notes"`
}

// Ongoing reports whether the step has no fixed duration.
func (s DoseStep) Ongoing() bool {
	return s.DurationWeeks == 0
}

type Protocol struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name" validate:"required"`
	Category  string     `json:"category" yaml:"category"`
	Frequency Frequency  `json:"frequency" yaml:"frequency" validate:"oneof=daily weekly"`
	Steps     []DoseStep `json:"steps" yaml:"steps" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Validate checks field constraints and the step ordering rules. A protocol
// that fails validation can still be passed to Generate.
func (p Protocol) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedProtocol, err)
	}

	for i := 1; i < len(p.Steps); i++ {
		if p.Steps[i].StartWeek <= p.Steps[i-1].StartWeek {
			return fmt.Errorf("%w: step %d start week %d is not after %d",
				ErrMalformedProtocol, i+1, p.Steps[i].StartWeek, p.Steps[i-1].StartWeek)
		}
	}

	for i, step := range p.Steps[:len(p.Steps)-1] {
		if step.Ongoing() {
			return fmt.Errorf("%w: step %d is open-ended but not the last step", ErrMalformedProtocol, i+1)
		}
	}

	return nil
}

type Phase struct {
	Step      DoseStep   `json:"step"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// IsCurrent reports whether now's calendar date falls inside the phase.
func (ph Phase) IsCurrent(now time.Time) bool {
	today := dateOf(now)
	if today.Before(ph.StartDate) {
		return false
	}
	return ph.EndDate == nil || !today.After(*ph.EndDate)
}

func (ph Phase) IsPast(now time.Time) bool {
	return ph.EndDate != nil && dateOf(now).After(*ph.EndDate)
}

// PhaseView is a phase with its derived flags resolved against a point in time.
type PhaseView struct {
	Phase
	IsCurrent bool `json:"is_current"`
	IsPast    bool `json:"is_past"`
}

func (ph Phase) View(now time.Time) PhaseView {
	return PhaseView{
		Phase:     ph,
		IsCurrent: ph.IsCurrent(now),
		IsPast:    ph.IsPast(now),
	}
}

type CalendarEntry struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
	Weekdays    []time.Weekday `json:"weekdays"`
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
