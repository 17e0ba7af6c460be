package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideTrackAPI/internal/achievement"
	"peptideTrackAPI/internal/events"
	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/testutil"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type recordedEvents struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordedEvents) handle(ev events.UnlockEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, ev.Achievement.ID)
}

func (r *recordedEvents) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func newAchievementService(t *testing.T, store *testutil.MemStore) (*AchievementService, *recordedEvents) {
	t.Helper()
	bus := events.NewUnlockBus()
	rec := &recordedEvents{}
	bus.Subscribe(rec.handle)

	svc := NewAchievementService(store, store, bus, logger.Nop(), time.UTC)
	svc.SetClock(func() time.Time { return testNow })
	return svc, rec
}

func seedTenInjectionsThreePeptides(store *testutil.MemStore, userID string) {
	peptides := []string{"Semaglutide", "BPC-157", "TB-500"}
	for i := 0; i < 10; i++ {
		store.AddInjection(userID, peptides[i%3], testNow.Add(-time.Duration(i+1)*time.Minute))
	}
}

func unlockedIDs(records []achievement.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.AchievementID)
	}
	return out
}

func TestEvaluate_UnlocksAndPoints(t *testing.T) {
	store := testutil.NewMemStore()
	seedTenInjectionsThreePeptides(store, "user_1")
	svc, bus := newAchievementService(t, store)

	res := svc.Evaluate(context.Background(), "user_1")

	require.False(t, res.Degraded)
	assert.Equal(t, []string{"first_injection", "ten_injections", "peptide_explorer"}, unlockedIDs(res.NewlyUnlocked))
	assert.Equal(t, 55, res.TotalPoints)
	assert.Equal(t, 10, res.Snapshot.TotalInjections)
	assert.Equal(t, 3, res.Snapshot.DistinctPeptides)
	assert.Equal(t, 1, res.Snapshot.Streak)
	assert.Equal(t, []string{"first_injection", "ten_injections", "peptide_explorer"}, bus.list())
	assert.Equal(t, []string{"first_injection", "peptide_explorer", "ten_injections"}, store.Unlocked("user_1"))
}

func TestEvaluate_Idempotent(t *testing.T) {
	store := testutil.NewMemStore()
	seedTenInjectionsThreePeptides(store, "user_1")
	svc, bus := newAchievementService(t, store)

	first := svc.Evaluate(context.Background(), "user_1")
	second := svc.Evaluate(context.Background(), "user_1")

	assert.Len(t, first.NewlyUnlocked, 3)
	assert.Empty(t, second.NewlyUnlocked)
	assert.Equal(t, 55, second.TotalPoints)
	assert.Len(t, bus.list(), 3, "each unlock is published once")
}

func TestEvaluate_NoHistory(t *testing.T) {
	store := testutil.NewMemStore()
	svc, bus := newAchievementService(t, store)

	res := svc.Evaluate(context.Background(), "nobody")

	assert.False(t, res.Degraded)
	assert.NotNil(t, res.NewlyUnlocked)
	assert.Empty(t, res.NewlyUnlocked)
	assert.Zero(t, res.TotalPoints)
	assert.Empty(t, bus.list())
}

func TestEvaluate_FetchFailureIsDegraded(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(*testutil.MemStore)
	}{
		{"injections", func(s *testutil.MemStore) { s.FetchInjectionsErr = errors.New("db down") }},
		{"unlocks", func(s *testutil.MemStore) { s.FetchUnlocksErr = errors.New("db down") }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := testutil.NewMemStore()
			seedTenInjectionsThreePeptides(store, "user_1")
			tc.setup(store)
			svc, bus := newAchievementService(t, store)

			res := svc.Evaluate(context.Background(), "user_1")

			assert.True(t, res.Degraded)
			assert.ErrorIs(t, res.FetchErr, ErrFetchHistory)
			assert.Empty(t, res.NewlyUnlocked)
			assert.Zero(t, store.UnlockCalls())
			assert.Empty(t, bus.list())
		})
	}
}

func TestEvaluate_ConflictIsSkipped(t *testing.T) {
	store := testutil.NewMemStore()
	seedTenInjectionsThreePeptides(store, "user_1")
	store.ConflictOn["ten_injections"] = true
	svc, bus := newAchievementService(t, store)

	res := svc.Evaluate(context.Background(), "user_1")

	assert.Equal(t, []string{"first_injection", "peptide_explorer"}, unlockedIDs(res.NewlyUnlocked))
	assert.Equal(t, []string{"first_injection", "peptide_explorer"}, bus.list())
}

func TestEvaluate_WriteFailureStillReported(t *testing.T) {
	store := testutil.NewMemStore()
	store.AddInjection("user_1", "BPC-157", testNow.Add(-time.Hour))
	store.UnlockErr = errors.New("write failed")
	svc, bus := newAchievementService(t, store)

	res := svc.Evaluate(context.Background(), "user_1")

	assert.Equal(t, []string{"first_injection"}, unlockedIDs(res.NewlyUnlocked))
	assert.Equal(t, 10, res.TotalPoints)
	assert.Equal(t, []string{"first_injection"}, bus.list())
	assert.Empty(t, store.Unlocked("user_1"))
}

func TestEvaluate_CrossingThreshold(t *testing.T) {
	store := testutil.NewMemStore()
	for i := 0; i < 9; i++ {
		store.AddInjection("user_1", "BPC-157", testNow.Add(-time.Duration(i+1)*time.Minute))
	}
	svc, _ := newAchievementService(t, store)

	before := svc.Evaluate(context.Background(), "user_1")
	require.Equal(t, []string{"first_injection"}, unlockedIDs(before.NewlyUnlocked))

	store.AddInjection("user_1", "BPC-157", testNow)
	after := svc.Evaluate(context.Background(), "user_1")

	assert.Equal(t, []string{"ten_injections"}, unlockedIDs(after.NewlyUnlocked))
	assert.Equal(t, before.TotalPoints+25, after.TotalPoints)
}

func TestEvaluate_StreakUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	store := testutil.NewMemStore()
	// 22:30 UTC on the 9th is already the 10th at UTC+3.
	store.AddInjection("user_1", "BPC-157", time.Date(2025, time.March, 9, 22, 30, 0, 0, time.UTC))
	store.AddInjection("user_1", "BPC-157", time.Date(2025, time.March, 9, 8, 0, 0, 0, time.UTC))

	svc := NewAchievementService(store, store, nil, logger.Nop(), loc)
	svc.SetClock(func() time.Time { return testNow })

	res := svc.Evaluate(context.Background(), "user_1")
	assert.Equal(t, 2, res.Snapshot.Streak)
}

func TestRecordFeatureUsage(t *testing.T) {
	store := testutil.NewMemStore()
	svc, bus := newAchievementService(t, store)
	ctx := context.Background()

	rec, err := svc.RecordFeatureUsage(ctx, "user_1", "calculator_used")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "calculator_used", rec.AchievementID)

	again, err := svc.RecordFeatureUsage(ctx, "user_1", "calculator_used")
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, []string{"calculator_used"}, bus.list())

	_, err = svc.RecordFeatureUsage(ctx, "user_1", "ten_injections")
	assert.ErrorIs(t, err, achievement.ErrNotFeatureUsage)

	_, err = svc.RecordFeatureUsage(ctx, "user_1", "nope")
	assert.ErrorIs(t, err, achievement.ErrUnknownAchievement)

	points, err := svc.TotalPoints(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 5, points)
}

func TestEvaluate_NeverUnlocksFeatureAchievements(t *testing.T) {
	store := testutil.NewMemStore()
	for i := 0; i < 120; i++ {
		store.AddInjection("user_1", "BPC-157", testNow.Add(-time.Duration(i)*time.Minute))
	}
	svc, _ := newAchievementService(t, store)

	res := svc.Evaluate(context.Background(), "user_1")
	for _, id := range unlockedIDs(res.NewlyUnlocked) {
		def, ok := achievement.DefaultCatalog().Get(id)
		require.True(t, ok)
		assert.NotEqual(t, achievement.CategoryFeature, def.Category, id)
	}
}

func TestListAchievements(t *testing.T) {
	store := testutil.NewMemStore()
	store.AddInjection("user_1", "BPC-157", testNow.Add(-time.Hour))
	svc, _ := newAchievementService(t, store)
	ctx := context.Background()

	svc.Evaluate(ctx, "user_1")

	list, err := svc.ListAchievements(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, list, achievement.DefaultCatalog().Len())

	byID := map[string]*achievement.WithStatus{}
	for _, a := range list {
		byID[a.ID] = a
	}
	assert.True(t, byID["first_injection"].Unlocked)
	require.NotNil(t, byID["first_injection"].UnlockedAt)
	assert.True(t, byID["first_injection"].UnlockedAt.Equal(testNow))
	assert.False(t, byID["ten_injections"].Unlocked)
}
