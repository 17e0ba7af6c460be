package achievement

import (
	"time"

	"peptideTrackAPI/internal/injection"
)

const dayLayout = "2006-01-02"

// Snapshot holds the measures the thresholds are compared against.
type Snapshot struct {
	TotalInjections  int        `json:"total_injections"`
	DistinctPeptides int        `json:"distinct_peptides"`
	Streak           int        `json:"streak"`
	Latest           *time.Time `json:"latest,omitempty"`
}

// CountDistinctPeptides compares names exactly as stored.
func CountDistinctPeptides(history []injection.Record) int {
	seen := make(map[string]struct{}, len(history))
	for _, r := range history {
		seen[r.PeptideName] = struct{}{}
	}
	return len(seen)
}

// Streak counts consecutive days with at least one injection, walking back
// from now's day. Days are taken in now's location. Nothing logged today
// means a streak of zero.
func Streak(history []injection.Record, now time.Time) int {
	loc := now.Location()
	days := make(map[string]struct{}, len(history))
	for _, r := range history {
		days[r.Timestamp.In(loc).Format(dayLayout)] = struct{}{}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	streak := 0
	for {
		if _, ok := days[today.AddDate(0, 0, -streak).Format(dayLayout)]; !ok {
			return streak
		}
		streak++
	}
}

// IsNightOwl reports an injection between 00:00 and 04:59.
func IsNightOwl(t time.Time) bool {
	return t.Hour() < 5
}

// IsEarlyBird reports an injection between 04:00 and 05:59. The 04:xx hour
// also counts for IsNightOwl.
func IsEarlyBird(t time.Time) bool {
	h := t.Hour()
	return h >= 4 && h < 6
}

func latest(history []injection.Record) *time.Time {
	var out *time.Time
	for i := range history {
		ts := history[i].Timestamp
		if out == nil || ts.After(*out) {
			out = &ts
		}
	}
	return out
}

func Summarize(history []injection.Record, now time.Time) Snapshot {
	snap := Snapshot{
		TotalInjections:  len(history),
		DistinctPeptides: CountDistinctPeptides(history),
		Streak:           Streak(history, now),
	}
	if l := latest(history); l != nil {
		local := l.In(now.Location())
		snap.Latest = &local
	}
	return snap
}

// measure returns the value compared against def.Requirement, and false for
// categories that are not derived from injection history.
func measure(def Definition, snap Snapshot) (int, bool) {
	switch def.Category {
	case CategoryMilestone:
		return snap.TotalInjections, true
	case CategoryVariety:
		return snap.DistinctPeptides, true
	case CategoryConsistency:
		return snap.Streak, true
	case CategorySpecial:
		if snap.Latest == nil {
			return 0, true
		}
		var hit bool
		switch def.ID {
		case "night_owl":
			hit = IsNightOwl(*snap.Latest)
		case "early_bird":
			hit = IsEarlyBird(*snap.Latest)
		default:
			return 0, false
		}
		if hit {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Evaluate returns the achievements that cross their threshold and are not in
// unlocked, in catalog order.
func Evaluate(c *Catalog, history []injection.Record, unlocked map[string]bool, now time.Time) []Unlock {
	return EvaluateSnapshot(c, Summarize(history, now), unlocked)
}

func EvaluateSnapshot(c *Catalog, snap Snapshot, unlocked map[string]bool) []Unlock {
	var out []Unlock
	for _, def := range c.defs {
		if unlocked[def.ID] {
			continue
		}
		value, ok := measure(def, snap)
		if !ok || value < def.Requirement {
			continue
		}
		out = append(out, Unlock{AchievementID: def.ID, Progress: value})
	}
	return out
}

// TotalPoints sums the points of unlocked achievements known to the catalog.
func TotalPoints(c *Catalog, unlocked map[string]bool) int {
	total := 0
	for _, def := range c.defs {
		if unlocked[def.ID] {
			total += def.Points
		}
	}
	return total
}
