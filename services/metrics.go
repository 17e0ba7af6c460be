package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"peptideTrackAPI/internal/events"
)

var (
	achievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Achievements unlocked, by achievement id",
		},
		[]string{"achievement"},
	)
	schedulesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedules_generated_total",
			Help: "Titration schedule requests, by outcome",
		},
		[]string{"outcome"},
	)
	notificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unlock_notifications_total",
			Help: "Unlock notifications handled by the dispatcher, by result",
		},
		[]string{"result"},
	)
)

// RegisterMetrics registers the service collectors. Call once from main.go.
func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(achievementsUnlocked, schedulesGenerated, notificationsDispatched)
}

// CountUnlocks is an UnlockBus subscriber feeding achievements_unlocked_total.
func CountUnlocks(ev events.UnlockEvent) {
	achievementsUnlocked.WithLabelValues(ev.Achievement.ID).Inc()
}
