package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"peptideTrackAPI/internal/injection"
	"peptideTrackAPI/internal/logger"
)

type InjectionService struct {
	store        InjectionWriter
	achievements *AchievementService
	log          logger.Logger
	now          func() time.Time
}

func NewInjectionService(store InjectionWriter, achievements *AchievementService, log logger.Logger) *InjectionService {
	return &InjectionService{
		store:        store,
		achievements: achievements,
		log:          log,
		now:          time.Now,
	}
}

type LogInjectionResult struct {
	Injection  *injection.Record  `json:"injection"`
	Evaluation *EvaluationResult `json:"evaluation"`
}

// LogInjection stores an injection and runs an evaluation pass for the user.
func (s *InjectionService) LogInjection(ctx context.Context, userID string, req *injection.LogInjectionRequest) (*LogInjectionResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid injection: %w", err)
	}

	ts := s.now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	rec := &injection.Record{
		ID:          uuid.New(),
		UserID:      userID,
		PeptideName: strings.TrimSpace(req.PeptideName),
		Dose:        req.Dose,
		Unit:        req.Unit,
		Timestamp:   ts,
	}

	if err := s.store.LogInjection(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to log injection: %w", err)
	}

	s.log.Debugf("LogInjection: user %s logged %s", userID, rec.PeptideName)

	return &LogInjectionResult{
		Injection:  rec,
		Evaluation: s.achievements.Evaluate(ctx, userID),
	}, nil
}
