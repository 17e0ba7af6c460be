// Package testutil provides in-memory fakes for the service store
// interfaces.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"peptideTrackAPI/internal/achievement"
	"peptideTrackAPI/internal/injection"
	"peptideTrackAPI/internal/notification"
	"peptideTrackAPI/internal/premium"
	"peptideTrackAPI/internal/titration"
)

// MemStore is a thread-safe in-memory record store. Setting one of the Err
// fields makes the matching operation fail.
//
//	store := testutil.NewMemStore()
//	store.FetchInjectionsErr = errors.New("db down")
type MemStore struct {
	mu sync.Mutex

	injections    map[string][]injection.Record
	unlocks       map[string]map[string]achievement.Record
	calendar      map[string][]titration.CalendarEntry
	devices       map[string][]notification.DeviceToken
	premium       map[string]*premium.Premium
	notifications []*notification.Notification
	sent          map[string]bool
	failures      map[string]string

	FetchInjectionsErr error
	LogInjectionErr    error
	FetchUnlocksErr    error
	UnlockErr          error
	CalendarErr        error
	NotificationErr    error
	PremiumErr         error

	// ConflictOn makes UnlockAchievement report a conflict for these ids
	// without storing them, as if another writer got there first.
	ConflictOn map[string]bool

	unlockCalls int
}

func NewMemStore() *MemStore {
	return &MemStore{
		injections: make(map[string][]injection.Record),
		unlocks:    make(map[string]map[string]achievement.Record),
		calendar:   make(map[string][]titration.CalendarEntry),
		devices:    make(map[string][]notification.DeviceToken),
		premium:    make(map[string]*premium.Premium),
		sent:       make(map[string]bool),
		failures:   make(map[string]string),
		ConflictOn: make(map[string]bool),
	}
}

// AddInjection seeds history for userID.
func (m *MemStore) AddInjection(userID, peptide string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.injections[userID] = append(m.injections[userID], injection.Record{
		UserID:      userID,
		PeptideName: peptide,
		Timestamp:   at,
	})
}

func (m *MemStore) FetchInjections(_ context.Context, userID string) ([]injection.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchInjectionsErr != nil {
		return nil, m.FetchInjectionsErr
	}
	out := append([]injection.Record(nil), m.injections[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *MemStore) LogInjection(_ context.Context, rec *injection.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LogInjectionErr != nil {
		return m.LogInjectionErr
	}
	m.injections[rec.UserID] = append(m.injections[rec.UserID], *rec)
	return nil
}

func (m *MemStore) FetchUnlockedAchievements(_ context.Context, userID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchUnlocksErr != nil {
		return nil, m.FetchUnlocksErr
	}
	out := make(map[string]bool, len(m.unlocks[userID]))
	for id := range m.unlocks[userID] {
		out[id] = true
	}
	return out, nil
}

func (m *MemStore) ListUnlockedRecords(_ context.Context, userID string) ([]achievement.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchUnlocksErr != nil {
		return nil, m.FetchUnlocksErr
	}
	out := make([]achievement.Record, 0, len(m.unlocks[userID]))
	for _, r := range m.unlocks[userID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievementID < out[j].AchievementID })
	return out, nil
}

func (m *MemStore) UnlockAchievement(_ context.Context, rec *achievement.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockCalls++
	if m.UnlockErr != nil {
		return false, m.UnlockErr
	}
	if m.ConflictOn[rec.AchievementID] {
		return false, nil
	}
	if m.unlocks[rec.UserID] == nil {
		m.unlocks[rec.UserID] = make(map[string]achievement.Record)
	}
	if _, ok := m.unlocks[rec.UserID][rec.AchievementID]; ok {
		return false, nil
	}
	m.unlocks[rec.UserID][rec.AchievementID] = *rec
	return true, nil
}

// UnlockCalls counts UnlockAchievement calls, including failed ones.
func (m *MemStore) UnlockCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlockCalls
}

// Unlocked returns the stored achievement ids for userID.
func (m *MemStore) Unlocked(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.unlocks[userID]))
	for id := range m.unlocks[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *MemStore) CreateRecurringCalendarEntry(_ context.Context, userID string, entry titration.CalendarEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CalendarErr != nil {
		return m.CalendarErr
	}
	m.calendar[userID] = append(m.calendar[userID], entry)
	return nil
}

func (m *MemStore) CalendarEntries(userID string) []titration.CalendarEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]titration.CalendarEntry(nil), m.calendar[userID]...)
}

func (m *MemStore) RegisterDevice(_ context.Context, userID string, req *notification.RegisterDeviceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.devices[userID] {
		if t.Token == req.Token {
			m.devices[userID][i].Platform = req.Platform
			return nil
		}
	}
	m.devices[userID] = append(m.devices[userID], notification.DeviceToken{Token: req.Token, Platform: req.Platform})
	return nil
}

func (m *MemStore) DeviceTokens(_ context.Context, userID string) ([]notification.DeviceToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.DeviceToken(nil), m.devices[userID]...), nil
}

func (m *MemStore) InsertNotification(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.NotificationErr != nil {
		return m.NotificationErr
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *MemStore) MarkNotificationSent(_ context.Context, id string, sent bool, failure string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[id] = sent
	if !sent {
		m.failures[id] = failure
	}
	return nil
}

// Notifications returns stored notifications with their sent flag.
func (m *MemStore) Notifications() ([]*notification.Notification, map[string]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := make(map[string]bool, len(m.sent))
	for k, v := range m.sent {
		sent[k] = v
	}
	return append([]*notification.Notification(nil), m.notifications...), sent
}

func (m *MemStore) GetPremium(_ context.Context, userID string) (*premium.Premium, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PremiumErr != nil {
		return nil, m.PremiumErr
	}
	p, ok := m.premium[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemStore) UpsertPremium(_ context.Context, p *premium.Premium) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PremiumErr != nil {
		return m.PremiumErr
	}
	cp := *p
	m.premium[p.UserID] = &cp
	return nil
}

func (m *MemStore) DeactivatePremium(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PremiumErr != nil {
		return m.PremiumErr
	}
	if p, ok := m.premium[userID]; ok {
		p.IsActive = false
	}
	return nil
}

func (m *MemStore) UpdatePremiumBySubscription(_ context.Context, subscriptionID string, active bool, validUntil time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PremiumErr != nil {
		return false, m.PremiumErr
	}
	found := false
	for _, p := range m.premium {
		if p.SubscriptionID == subscriptionID {
			p.IsActive = active
			p.ValidUntil = validUntil
			found = true
		}
	}
	return found, nil
}

// StaticEntitlement answers IsPremium with a fixed value.
type StaticEntitlement struct {
	Premium bool
	Err     error
}

func (s StaticEntitlement) IsPremium(context.Context, string) (bool, error) {
	return s.Premium, s.Err
}
