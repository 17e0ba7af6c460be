package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"peptideTrackAPI/internal/achievement"
	"peptideTrackAPI/internal/injection"
	"peptideTrackAPI/internal/notification"
	"peptideTrackAPI/internal/premium"
	"peptideTrackAPI/internal/titration"
)

// RecordStore is the Postgres implementation of the store interfaces.
type RecordStore struct {
	db *pgxpool.Pool
}

func NewRecordStore(db *pgxpool.Pool) *RecordStore {
	return &RecordStore{db: db}
}

var (
	_ InjectionReader   = (*RecordStore)(nil)
	_ InjectionWriter   = (*RecordStore)(nil)
	_ UnlockStore       = (*RecordStore)(nil)
	_ CalendarWriter    = (*RecordStore)(nil)
	_ NotificationStore = (*RecordStore)(nil)
	_ DeviceRegistry    = (*RecordStore)(nil)
	_ PremiumStore      = (*RecordStore)(nil)
)

func (s *RecordStore) FetchInjections(ctx context.Context, userID string) ([]injection.Record, error) {
	query := `
		SELECT id, user_id, peptide_name, dose, unit, injected_at
		FROM injections
		WHERE user_id = $1
		ORDER BY injected_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch injections: %w", err)
	}
	defer rows.Close()

	var records []injection.Record
	for rows.Next() {
		var rec injection.Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.PeptideName, &rec.Dose, &rec.Unit, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan injection: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate injections: %w", err)
	}

	return records, nil
}

func (s *RecordStore) LogInjection(ctx context.Context, rec *injection.Record) error {
	query := `
		INSERT INTO injections (id, user_id, peptide_name, dose, unit, injected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := s.db.Exec(ctx, query, rec.ID, rec.UserID, rec.PeptideName, rec.Dose, rec.Unit, rec.Timestamp); err != nil {
		return fmt.Errorf("failed to insert injection: %w", err)
	}
	return nil
}

func (s *RecordStore) FetchUnlockedAchievements(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.db.Query(ctx, `SELECT achievement_id FROM user_achievements WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unlocked achievements: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan achievement id: %w", err)
		}
		unlocked[id] = true
	}
	return unlocked, rows.Err()
}

func (s *RecordStore) ListUnlockedRecords(ctx context.Context, userID string) ([]achievement.Record, error) {
	query := `
		SELECT id, user_id, achievement_id, progress, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY unlocked_at ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	var records []achievement.Record
	for rows.Next() {
		var r achievement.Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.AchievementID, &r.Progress, &r.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *RecordStore) UnlockAchievement(ctx context.Context, rec *achievement.Record) (bool, error) {
	query := `
		INSERT INTO user_achievements (id, user_id, achievement_id, progress, unlocked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query, rec.ID, rec.UserID, rec.AchievementID, rec.Progress, rec.UnlockedAt)
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *RecordStore) CreateRecurringCalendarEntry(ctx context.Context, userID string, entry titration.CalendarEntry) error {
	weekdays := make([]int16, len(entry.Weekdays))
	for i, wd := range entry.Weekdays {
		weekdays[i] = int16(wd)
	}

	query := `
		INSERT INTO calendar_entries (user_id, title, description, start_date, end_date, weekdays)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := s.db.Exec(ctx, query, userID, entry.Title, entry.Description, entry.StartDate, entry.EndDate, weekdays); err != nil {
		return fmt.Errorf("failed to create calendar entry: %w", err)
	}
	return nil
}

func (s *RecordStore) RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) error {
	query := `
		INSERT INTO device_tokens (user_id, token, platform, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, token)
		DO UPDATE SET platform = $3, updated_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, userID, req.Token, req.Platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *RecordStore) DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *RecordStore) InsertNotification(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, status, title, body, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Status, n.Title, n.Body, n.Data, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *RecordStore) MarkNotificationSent(ctx context.Context, id string, sent bool, failure string) error {
	query := `
		UPDATE notifications
		SET status = 'sent', sent_at = NOW()
		WHERE id = $1
	`
	args := []any{id}
	if !sent {
		query = `
			UPDATE notifications
			SET status = 'failed', failed_at = NOW(), failure_reason = $2
			WHERE id = $1
		`
		args = append(args, failure)
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update notification %s: %w", id, err)
	}
	return nil
}

func (s *RecordStore) GetPremium(ctx context.Context, userID string) (*premium.Premium, error) {
	query := `
		SELECT user_id, source, subscription_id, valid_until, is_active, created_at, updated_at
		FROM premium
		WHERE user_id = $1
	`

	p := &premium.Premium{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Source,
		&p.SubscriptionID,
		&p.ValidUntil,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch premium: %w", err)
	}
	return p, nil
}

func (s *RecordStore) UpsertPremium(ctx context.Context, p *premium.Premium) error {
	query := `
		INSERT INTO premium (user_id, source, subscription_id, valid_until, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			source = $2,
			subscription_id = $3,
			valid_until = $4,
			is_active = $5,
			updated_at = NOW()
	`

	if _, err := s.db.Exec(ctx, query, p.UserID, p.Source, p.SubscriptionID, p.ValidUntil, p.IsActive); err != nil {
		return fmt.Errorf("failed to upsert premium: %w", err)
	}
	return nil
}

func (s *RecordStore) DeactivatePremium(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, `UPDATE premium SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to deactivate premium: %w", err)
	}
	return nil
}

func (s *RecordStore) UpdatePremiumBySubscription(ctx context.Context, subscriptionID string, active bool, validUntil time.Time) (bool, error) {
	query := `
		UPDATE premium
		SET is_active = $2, valid_until = $3, updated_at = NOW()
		WHERE subscription_id = $1
	`

	tag, err := s.db.Exec(ctx, query, subscriptionID, active, validUntil)
	if err != nil {
		return false, fmt.Errorf("failed to update premium subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
