package services

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideTrackAPI/internal/achievement"
	"peptideTrackAPI/internal/injection"
	"peptideTrackAPI/internal/premium"
)

// setupTestStore connects to TEST_DATABASE_URL (or DATABASE_URL), applies the
// schema and returns a store plus a user id unique to this test.
func setupTestStore(t *testing.T) (*RecordStore, string) {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	schema, err := os.ReadFile("../migrations/001_init.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	userID := "test_" + uuid.NewString()
	t.Cleanup(func() {
		for _, table := range []string{"injections", "user_achievements", "premium"} {
			if _, err := pool.Exec(context.Background(), "DELETE FROM "+table+" WHERE user_id = $1", userID); err != nil {
				t.Logf("Warning: failed to cleanup %s: %v", table, err)
			}
		}
		pool.Close()
	})

	return NewRecordStore(pool), userID
}

func unlockRecord(userID, achievementID string) *achievement.Record {
	return &achievement.Record{
		ID:            uuid.New(),
		UserID:        userID,
		AchievementID: achievementID,
		Progress:      1,
		UnlockedAt:    time.Now().UTC(),
	}
}

func TestRecordStore_UnlockAchievementOnce(t *testing.T) {
	store, userID := setupTestStore(t)
	ctx := context.Background()

	inserted, err := store.UnlockAchievement(ctx, unlockRecord(userID, "first_injection"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.UnlockAchievement(ctx, unlockRecord(userID, "first_injection"))
	require.NoError(t, err)
	assert.False(t, inserted, "second unlock of the same achievement must not insert")

	unlocked, err := store.FetchUnlockedAchievements(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"first_injection": true}, unlocked)

	records, err := store.ListUnlockedRecords(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordStore_ConcurrentUnlockInsertsOnce(t *testing.T) {
	store, userID := setupTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var inserts atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := store.UnlockAchievement(ctx, unlockRecord(userID, "ten_injections"))
			assert.NoError(t, err)
			if inserted {
				inserts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inserts.Load())
}

func TestRecordStore_Injections(t *testing.T) {
	store, userID := setupTestStore(t)
	ctx := context.Background()

	at := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	dose := 0.25
	require.NoError(t, store.LogInjection(ctx, &injection.Record{
		ID:          uuid.New(),
		UserID:      userID,
		PeptideName: "BPC-157",
		Dose:        &dose,
		Timestamp:   at,
	}))

	history, err := store.FetchInjections(ctx, userID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "BPC-157", history[0].PeptideName)
	assert.True(t, at.Equal(history[0].Timestamp))
}

func TestRecordStore_Premium(t *testing.T) {
	store, userID := setupTestStore(t)
	ctx := context.Background()

	p, err := store.GetPremium(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, p)

	until := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	subID := "sub_" + uuid.NewString()
	require.NoError(t, store.UpsertPremium(ctx, &premium.Premium{
		UserID:         userID,
		Source:         premium.SourceStripe,
		SubscriptionID: subID,
		ValidUntil:     until,
		IsActive:       true,
	}))

	p, err = store.GetPremium(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsActive)
	assert.Equal(t, premium.SourceStripe, p.Source)

	found, err := store.UpdatePremiumBySubscription(ctx, subID, false, until)
	require.NoError(t, err)
	assert.True(t, found)

	p, err = store.GetPremium(ctx, userID)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
}
