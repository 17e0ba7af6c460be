package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideTrackAPI/internal/injection"
	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/testutil"
)

func newInjectionService(t *testing.T, store *testutil.MemStore) *InjectionService {
	t.Helper()
	achievements, _ := newAchievementService(t, store)
	svc := NewInjectionService(store, achievements, logger.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestLogInjection_DefaultsTimestampAndEvaluates(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newInjectionService(t, store)

	res, err := svc.LogInjection(context.Background(), "user_1", &injection.LogInjectionRequest{PeptideName: "  BPC-157 "})

	require.NoError(t, err)
	assert.Equal(t, "BPC-157", res.Injection.PeptideName)
	assert.True(t, res.Injection.Timestamp.Equal(testNow))
	assert.Equal(t, []string{"first_injection"}, unlockedIDs(res.Evaluation.NewlyUnlocked))

	history, err := store.FetchInjections(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLogInjection_ExplicitTimestamp(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newInjectionService(t, store)
	at := time.Date(2025, time.March, 10, 2, 30, 0, 0, time.UTC)

	res, err := svc.LogInjection(context.Background(), "user_1", &injection.LogInjectionRequest{
		PeptideName: "Ipamorelin",
		Timestamp:   &at,
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first_injection", "night_owl"}, unlockedIDs(res.Evaluation.NewlyUnlocked))
}

func TestLogInjection_Errors(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newInjectionService(t, store)

	_, err := svc.LogInjection(context.Background(), "user_1", &injection.LogInjectionRequest{})
	assert.ErrorContains(t, err, "invalid injection")

	store.LogInjectionErr = errors.New("db down")
	_, err = svc.LogInjection(context.Background(), "user_1", &injection.LogInjectionRequest{PeptideName: "TB-500"})
	assert.ErrorContains(t, err, "failed to log injection")
	assert.Zero(t, store.UnlockCalls())
}
