package services

import (
	"context"
	"time"

	"peptideTrackAPI/internal/achievement"
	"peptideTrackAPI/internal/injection"
	"peptideTrackAPI/internal/notification"
	"peptideTrackAPI/internal/premium"
	"peptideTrackAPI/internal/titration"
)

// Services only need a narrow slice of the record store. RecordStore
// implements all of these against Postgres.

type InjectionReader interface {
	FetchInjections(ctx context.Context, userID string) ([]injection.Record, error)
}

type InjectionWriter interface {
	LogInjection(ctx context.Context, rec *injection.Record) error
}

type UnlockStore interface {
	FetchUnlockedAchievements(ctx context.Context, userID string) (map[string]bool, error)
	ListUnlockedRecords(ctx context.Context, userID string) ([]achievement.Record, error)
	// UnlockAchievement inserts rec unless (UserID, AchievementID) already
	// exists. inserted is false on conflict.
	UnlockAchievement(ctx context.Context, rec *achievement.Record) (inserted bool, err error)
}

type CalendarWriter interface {
	CreateRecurringCalendarEntry(ctx context.Context, userID string, entry titration.CalendarEntry) error
}

type EntitlementChecker interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
}

type NotificationStore interface {
	DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error)
	InsertNotification(ctx context.Context, n *notification.Notification) error
	MarkNotificationSent(ctx context.Context, id string, sent bool, failure string) error
}

type DeviceRegistry interface {
	RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) error
}

type PremiumStore interface {
	// GetPremium returns nil without error when the user has no record.
	GetPremium(ctx context.Context, userID string) (*premium.Premium, error)
	UpsertPremium(ctx context.Context, p *premium.Premium) error
	DeactivatePremium(ctx context.Context, userID string) error
	// UpdatePremiumBySubscription returns false when no row carries
	// subscriptionID.
	UpdatePremiumBySubscription(ctx context.Context, subscriptionID string, active bool, validUntil time.Time) (bool, error)
}
