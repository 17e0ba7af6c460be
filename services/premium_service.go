package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/subscription"

	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/premium"
)

var ErrPaddleDisabled = errors.New("paddle is not configured")

type PremiumService struct {
	store  PremiumStore
	paddle *paddle.SDK
	log    logger.Logger
	now    func() time.Time

	fetchStripeSubscription func(id string) (*stripe.Subscription, error)
}

// NewPremiumService wires entitlement storage. paddleClient may be nil, in
// which case the paywall carries no prices.
func NewPremiumService(store PremiumStore, paddleClient *paddle.SDK, log logger.Logger) *PremiumService {
	return &PremiumService{
		store:  store,
		paddle: paddleClient,
		log:    log,
		now:    time.Now,
		fetchStripeSubscription: func(id string) (*stripe.Subscription, error) {
			return subscription.Get(id, nil)
		},
	}
}

func (s *PremiumService) SetClock(now func() time.Time) {
	s.now = now
}

// SetStripeFetcher replaces the Stripe API lookup. Used by tests.
func (s *PremiumService) SetStripeFetcher(fn func(id string) (*stripe.Subscription, error)) {
	s.fetchStripeSubscription = fn
}

func (s *PremiumService) IsPremium(ctx context.Context, userID string) (bool, error) {
	p, err := s.store.GetPremium(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.Entitled(s.now()), nil
}

func (s *PremiumService) Grant(ctx context.Context, userID string, source premium.Source, subscriptionID string, validUntil time.Time) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	err := s.store.UpsertPremium(ctx, &premium.Premium{
		UserID:         userID,
		Source:         source,
		SubscriptionID: subscriptionID,
		ValidUntil:     validUntil,
		IsActive:       true,
	})
	if err != nil {
		return err
	}

	s.log.Infof("Grant: premium for user %s via %s until %s", userID, source, validUntil.Format(time.RFC3339))
	return nil
}

func (s *PremiumService) Revoke(ctx context.Context, userID string) error {
	if err := s.store.DeactivatePremium(ctx, userID); err != nil {
		return err
	}
	s.log.Infof("Revoke: premium revoked for user %s", userID)
	return nil
}

// SyncSubscription applies a provider subscription status to whichever user
// holds subscriptionID.
func (s *PremiumService) SyncSubscription(ctx context.Context, subscriptionID string, active bool, validUntil time.Time) error {
	found, err := s.store.UpdatePremiumBySubscription(ctx, subscriptionID, active, validUntil)
	if err != nil {
		return err
	}
	if !found {
		s.log.Warnf("SyncSubscription: no premium row for subscription %s", subscriptionID)
	}
	return nil
}

func (s *PremiumService) FetchStripeSubscription(id string) (*stripe.Subscription, error) {
	sub, err := s.fetchStripeSubscription(id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stripe subscription %s: %w", id, err)
	}
	return sub, nil
}

// StripeSubscriptionActive reports whether a Stripe status keeps access.
func StripeSubscriptionActive(status stripe.SubscriptionStatus) bool {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return true
	}
	return false
}

// ListPrices returns the active Paddle prices shown on the paywall.
func (s *PremiumService) ListPrices(ctx context.Context) ([]premium.Price, error) {
	if s.paddle == nil {
		return nil, ErrPaddleDisabled
	}

	collection, err := s.paddle.ListPrices(ctx, &paddle.ListPricesRequest{
		Status: []string{string(paddle.StatusActive)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}

	prices := []premium.Price{}
	for {
		res := collection.Next(ctx)
		if !res.Ok() {
			if err := res.Err(); err != nil {
				return nil, fmt.Errorf("failed to iterate prices: %w", err)
			}
			break
		}

		p := res.Value()
		interval := ""
		if p.BillingCycle != nil {
			interval = string(p.BillingCycle.Interval)
		}

		prices = append(prices, premium.Price{
			ID:          p.ID,
			ProductID:   p.ProductID,
			Description: p.Description,
			Amount:      p.UnitPrice.Amount,
			Currency:    string(p.UnitPrice.CurrencyCode),
			Interval:    interval,
		})
	}

	return prices, nil
}
