package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/titration"
)

var ErrProtocolRequired = errors.New("protocol_id or protocol is required")

var validate = validator.New()

type ScheduleRequest struct {
	ProtocolID string              `json:"protocol_id,omitempty"`
	Protocol   *titration.Protocol `json:"protocol,omitempty" validate:"-"`
	StartDate  string              `json:"start_date" validate:"required,datetime=2006-01-02"`
	// Weekday is 0 (Sunday) through 6 and is only used when applying a
	// weekly protocol to the calendar.
	Weekday *int `json:"weekday,omitempty" validate:"omitempty,min=0,max=6"`
}

type ScheduleResult struct {
	Paywall  bool                  `json:"paywall"`
	Protocol *titration.Protocol   `json:"protocol,omitempty"`
	Phases   []titration.PhaseView `json:"phases,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
}

type TitrationService struct {
	catalog  *titration.Catalog
	premium  EntitlementChecker
	calendar CalendarWriter
	features *AchievementService
	log      logger.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewTitrationService builds the service. loc decides which calendar day
// "today" is when flagging the current phase; nil means UTC.
func NewTitrationService(catalog *titration.Catalog, premium EntitlementChecker, calendar CalendarWriter, features *AchievementService, log logger.Logger, loc *time.Location) *TitrationService {
	if loc == nil {
		loc = time.UTC
	}
	return &TitrationService{
		catalog:  catalog,
		premium:  premium,
		calendar: calendar,
		features: features,
		log:      log,
		loc:      loc,
		now:      time.Now,
	}
}

func (s *TitrationService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TitrationService) Protocols() []titration.Protocol {
	return s.catalog.All()
}

type preparedSchedule struct {
	protocol titration.Protocol
	phases   []titration.Phase
	warnings []string
}

// entitled reports whether the user may use the generator. A failed lookup
// is treated as not entitled.
func (s *TitrationService) entitled(ctx context.Context, userID string) bool {
	ok, err := s.premium.IsPremium(ctx, userID)
	if err != nil {
		s.log.Errorf("titration: premium lookup failed for user %s: %v", userID, err)
		return false
	}
	return ok
}

// prepare returns nil without error when the user is not entitled; the
// request is not validated and the generator is not run in that case.
func (s *TitrationService) prepare(ctx context.Context, userID string, req *ScheduleRequest) (*preparedSchedule, error) {
	if !s.entitled(ctx, userID) {
		schedulesGenerated.WithLabelValues("paywall").Inc()
		return nil, nil
	}

	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid schedule request: %w", err)
	}

	var p titration.Protocol
	switch {
	case req.Protocol != nil:
		p = *req.Protocol
	case req.ProtocolID != "":
		var err error
		if p, err = s.catalog.Get(req.ProtocolID); err != nil {
			return nil, err
		}
	default:
		return nil, ErrProtocolRequired
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date: %w", err)
	}

	prepared := &preparedSchedule{protocol: p}
	if err := p.Validate(); err != nil {
		s.log.Warnf("titration: user %s protocol %q: %v", userID, p.Name, err)
		prepared.warnings = append(prepared.warnings, err.Error())
	}

	prepared.phases = titration.Generate(p, start)
	schedulesGenerated.WithLabelValues("generated").Inc()
	return prepared, nil
}

// Schedule generates the dated phases for a protocol. Users without premium
// get a result with Paywall set and no phases.
func (s *TitrationService) Schedule(ctx context.Context, userID string, req *ScheduleRequest) (*ScheduleResult, error) {
	prepared, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	if prepared == nil {
		return &ScheduleResult{Paywall: true}, nil
	}

	now := s.now().In(s.loc)
	views := make([]titration.PhaseView, 0, len(prepared.phases))
	for _, ph := range prepared.phases {
		views = append(views, ph.View(now))
	}

	s.recordPlannerUsage(ctx, userID)

	return &ScheduleResult{
		Protocol: &prepared.protocol,
		Phases:   views,
		Warnings: prepared.warnings,
	}, nil
}

// Export renders the schedule as plain text. paywall is true when the user
// is not entitled.
func (s *TitrationService) Export(ctx context.Context, userID string, req *ScheduleRequest) (text string, paywall bool, err error) {
	prepared, err := s.prepare(ctx, userID, req)
	if err != nil {
		return "", false, err
	}
	if prepared == nil {
		return "", true, nil
	}
	return titration.ExportText(prepared.phases), false, nil
}

// ApplyToCalendar writes one recurring calendar entry per phase.
func (s *TitrationService) ApplyToCalendar(ctx context.Context, userID string, req *ScheduleRequest) (entries []titration.CalendarEntry, paywall bool, err error) {
	prepared, err := s.prepare(ctx, userID, req)
	if err != nil {
		return nil, false, err
	}
	if prepared == nil {
		return nil, true, nil
	}

	var weekday *time.Weekday
	if req.Weekday != nil {
		wd := time.Weekday(*req.Weekday)
		weekday = &wd
	}

	entries, err = titration.CalendarEntries(prepared.protocol, prepared.phases, weekday)
	if err != nil {
		return nil, false, err
	}

	for i, entry := range entries {
		if err := s.calendar.CreateRecurringCalendarEntry(ctx, userID, entry); err != nil {
			return nil, false, fmt.Errorf("failed to create calendar entry %d: %w", i+1, err)
		}
	}

	s.log.Infof("ApplyToCalendar: created %d entries for user %s", len(entries), userID)
	return entries, false, nil
}

func (s *TitrationService) recordPlannerUsage(ctx context.Context, userID string) {
	if s.features == nil {
		return
	}
	if _, err := s.features.RecordFeatureUsage(ctx, userID, "schedule_planner_used"); err != nil {
		s.log.Warnf("titration: failed to record planner usage for user %s: %v", userID, err)
	}
}
