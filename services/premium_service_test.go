package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/premium"
	"peptideTrackAPI/internal/testutil"
)

func newPremiumService(store *testutil.MemStore) *PremiumService {
	svc := NewPremiumService(store, nil, logger.Nop())
	svc.SetClock(func() time.Time { return testNow })
	return svc
}

func TestPremium_GrantRevoke(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newPremiumService(store)
	ctx := context.Background()

	ok, err := svc.IsPremium(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Grant(ctx, "user_1", premium.SourceStripe, "sub_1", testNow.Add(30*24*time.Hour)))
	ok, err = svc.IsPremium(ctx, "user_1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Revoke(ctx, "user_1"))
	ok, err = svc.IsPremium(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, svc.Grant(ctx, "", premium.SourceManual, "", testNow))
}

func TestPremium_Expired(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newPremiumService(store)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "user_1", premium.SourcePaddle, "sub_1", testNow.Add(-time.Minute)))

	ok, err := svc.IsPremium(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPremium_SyncSubscription(t *testing.T) {
	store := testutil.NewMemStore()
	svc := newPremiumService(store)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, "user_1", premium.SourceStripe, "sub_1", testNow.Add(time.Hour)))
	require.NoError(t, svc.SyncSubscription(ctx, "sub_1", false, testNow.Add(time.Hour)))

	ok, err := svc.IsPremium(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, svc.SyncSubscription(ctx, "sub_unknown", true, testNow))
}

func TestPremium_LookupError(t *testing.T) {
	store := testutil.NewMemStore()
	store.PremiumErr = errors.New("db down")
	svc := newPremiumService(store)

	_, err := svc.IsPremium(context.Background(), "user_1")
	assert.Error(t, err)
}

func TestPremium_ListPricesWithoutPaddle(t *testing.T) {
	svc := newPremiumService(testutil.NewMemStore())

	_, err := svc.ListPrices(context.Background())
	assert.ErrorIs(t, err, ErrPaddleDisabled)
}

func TestPremium_FetchStripeSubscription(t *testing.T) {
	svc := newPremiumService(testutil.NewMemStore())
	svc.SetStripeFetcher(func(id string) (*stripe.Subscription, error) {
		if id == "sub_missing" {
			return nil, errors.New("no such subscription")
		}
		return &stripe.Subscription{ID: id, Status: stripe.SubscriptionStatusActive}, nil
	})

	sub, err := svc.FetchStripeSubscription("sub_1")
	require.NoError(t, err)
	assert.True(t, StripeSubscriptionActive(sub.Status))
	assert.False(t, StripeSubscriptionActive(stripe.SubscriptionStatusCanceled))

	_, err = svc.FetchStripeSubscription("sub_missing")
	assert.ErrorContains(t, err, "sub_missing")
}
