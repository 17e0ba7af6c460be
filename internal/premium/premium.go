package premium

import (
	"time"
)

type Source string

const (
	SourceStripe Source = "stripe"
	SourcePaddle Source = "paddle"
	SourceManual Source = "manual"
)

type Premium struct {
	UserID         string    `json:"userId" db:"user_id"`
	Source         Source    `json:"source" db:"source"`
	SubscriptionID string    `json:"subscriptionId" db:"subscription_id"`
	ValidUntil     time.Time `json:"validUntil" db:"valid_until"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Entitled reports whether the subscription grants access at now.
func (p *Premium) Entitled(now time.Time) bool {
	return p != nil && p.IsActive && p.ValidUntil.After(now)
}

type Price struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Interval    string `json:"interval"`
}
