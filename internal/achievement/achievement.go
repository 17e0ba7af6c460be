package achievement

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryMilestone   Category = "milestone"
	CategoryVariety     Category = "variety"
	CategoryConsistency Category = "consistency"
	CategorySpecial     Category = "special"
	CategoryFeature     Category = "feature"
)

var (
	ErrUnknownAchievement = errors.New("unknown achievement")
	ErrNotFeatureUsage    = errors.New("achievement is not unlocked by feature usage")
)

// Definition is a catalog entry. Requirement is compared against the
// category's measure: injection count, distinct peptides, streak days, or 1
// for one-off events.
type Definition struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Points      int      `json:"points"`
	Category    Category `json:"category"`
	Requirement int      `json:"requirement"`
}

// Record is a persisted unlock. At most one exists per (UserID, AchievementID).
type Record struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	AchievementID string    `json:"achievement_id" db:"achievement_id"`
	Progress      int       `json:"progress" db:"progress"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

type Unlock struct {
	AchievementID string `json:"achievement_id"`
	Progress      int    `json:"progress"`
}

type WithStatus struct {
	Definition
	Unlocked   bool       `json:"unlocked"`
	Progress   int        `json:"progress"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}
