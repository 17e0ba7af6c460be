package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"peptideTrackAPI/internal/achievement"
	"peptideTrackAPI/internal/events"
	"peptideTrackAPI/internal/injection"
	"peptideTrackAPI/internal/logger"
)

var ErrFetchHistory = errors.New("failed to fetch achievement inputs")

type AchievementService struct {
	injections InjectionReader
	unlocks    UnlockStore
	catalog    *achievement.Catalog
	bus        *events.UnlockBus
	log        logger.Logger
	loc        *time.Location
	now        func() time.Time
}

func NewAchievementService(injections InjectionReader, unlocks UnlockStore, bus *events.UnlockBus, log logger.Logger, loc *time.Location) *AchievementService {
	if loc == nil {
		loc = time.UTC
	}
	return &AchievementService{
		injections: injections,
		unlocks:    unlocks,
		catalog:    achievement.DefaultCatalog(),
		bus:        bus,
		log:        log,
		loc:        loc,
		now:        time.Now,
	}
}

// SetClock replaces the wall clock. Used by tests.
func (s *AchievementService) SetClock(now func() time.Time) {
	s.now = now
}

// EvaluationResult is the outcome of one evaluation pass. When the inputs
// could not be read, Degraded is set and nothing is unlocked; that is
// reported separately from a user with no history.
type EvaluationResult struct {
	NewlyUnlocked []achievement.Record `json:"newly_unlocked"`
	Snapshot      achievement.Snapshot `json:"snapshot"`
	TotalPoints   int                  `json:"total_points"`
	Degraded      bool                 `json:"degraded"`
	FetchErr      error                `json:"-"`
}

// Evaluate reads the user's history and existing unlocks, unlocks whatever
// newly crosses a threshold, and notifies bus subscribers once per unlock.
func (s *AchievementService) Evaluate(ctx context.Context, userID string) *EvaluationResult {
	var (
		history  []injection.Record
		unlocked map[string]bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.injections.FetchInjections(gctx, userID)
		if err != nil {
			return fmt.Errorf("injections: %w", err)
		}
		history = h
		return nil
	})
	g.Go(func() error {
		u, err := s.unlocks.FetchUnlockedAchievements(gctx, userID)
		if err != nil {
			return fmt.Errorf("unlocked achievements: %w", err)
		}
		unlocked = u
		return nil
	})

	if err := g.Wait(); err != nil {
		s.log.Warnf("Evaluate: user %s: %v", userID, err)
		return &EvaluationResult{
			NewlyUnlocked: []achievement.Record{},
			Degraded:      true,
			FetchErr:      fmt.Errorf("%w: %v", ErrFetchHistory, err),
		}
	}
	if unlocked == nil {
		unlocked = map[string]bool{}
	}

	now := s.now().In(s.loc)
	snap := achievement.Summarize(history, now)
	result := &EvaluationResult{
		NewlyUnlocked: []achievement.Record{},
		Snapshot:      snap,
	}

	for _, u := range achievement.EvaluateSnapshot(s.catalog, snap, unlocked) {
		rec, ok := s.unlock(ctx, userID, u, now)
		if !ok {
			continue
		}
		result.NewlyUnlocked = append(result.NewlyUnlocked, *rec)
		unlocked[rec.AchievementID] = true
	}

	result.TotalPoints = achievement.TotalPoints(s.catalog, unlocked)
	return result
}

// unlock writes one unlock and publishes it. A conflicting write means
// another evaluation got there first and is dropped silently. Any other
// write failure is logged and the unlock is still reported; the next pass
// retries it.
func (s *AchievementService) unlock(ctx context.Context, userID string, u achievement.Unlock, now time.Time) (*achievement.Record, bool) {
	rec := &achievement.Record{
		ID:            uuid.New(),
		UserID:        userID,
		AchievementID: u.AchievementID,
		Progress:      u.Progress,
		UnlockedAt:    now,
	}

	inserted, err := s.unlocks.UnlockAchievement(ctx, rec)
	switch {
	case err != nil:
		s.log.Warnf("unlock: failed to persist %s for user %s: %v", u.AchievementID, userID, err)
	case !inserted:
		s.log.Debugf("unlock: %s already unlocked for user %s", u.AchievementID, userID)
		return nil, false
	}

	def, _ := s.catalog.Get(u.AchievementID)
	if s.bus != nil {
		s.bus.Publish(events.UnlockEvent{
			UserID:      userID,
			Achievement: def,
			Progress:    rec.Progress,
			UnlockedAt:  rec.UnlockedAt,
		})
	}
	return rec, true
}

// RecordFeatureUsage unlocks a feature-usage achievement. It returns nil when
// the achievement was already unlocked.
func (s *AchievementService) RecordFeatureUsage(ctx context.Context, userID, achievementID string) (*achievement.Record, error) {
	def, ok := s.catalog.Get(achievementID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", achievement.ErrUnknownAchievement, achievementID)
	}
	if def.Category != achievement.CategoryFeature {
		return nil, fmt.Errorf("%w: %s", achievement.ErrNotFeatureUsage, achievementID)
	}

	unlocked, err := s.unlocks.FetchUnlockedAchievements(ctx, userID)
	if err != nil {
		s.log.Warnf("RecordFeatureUsage: failed to read unlocks for user %s: %v", userID, err)
	} else if unlocked[achievementID] {
		return nil, nil
	}

	rec, ok := s.unlock(ctx, userID, achievement.Unlock{AchievementID: achievementID, Progress: def.Requirement}, s.now().In(s.loc))
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (s *AchievementService) TotalPoints(ctx context.Context, userID string) (int, error) {
	unlocked, err := s.unlocks.FetchUnlockedAchievements(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch unlocked achievements: %w", err)
	}
	return achievement.TotalPoints(s.catalog, unlocked), nil
}

// ListAchievements returns the whole catalog with the user's unlock status.
func (s *AchievementService) ListAchievements(ctx context.Context, userID string) ([]*achievement.WithStatus, error) {
	records, err := s.unlocks.ListUnlockedRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}

	byID := make(map[string]achievement.Record, len(records))
	for _, r := range records {
		byID[r.AchievementID] = r
	}

	out := make([]*achievement.WithStatus, 0, s.catalog.Len())
	for _, def := range s.catalog.All() {
		ws := &achievement.WithStatus{Definition: def}
		if r, ok := byID[def.ID]; ok {
			unlockedAt := r.UnlockedAt
			ws.Unlocked = true
			ws.Progress = r.Progress
			ws.UnlockedAt = &unlockedAt
		}
		out = append(out, ws)
	}
	return out, nil
}
