package services

import (
	"encoding/json"
	"fmt"

	"peptideTrackAPI/internal/events"
	"peptideTrackAPI/internal/logger"
)

const unlockSubjectPrefix = "achievements.unlocked."

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// UnlockPublisher forwards unlock events to NATS so other services can react
// to them.
type UnlockPublisher struct {
	conn Publisher
	log  logger.Logger
}

func NewUnlockPublisher(conn Publisher, log logger.Logger) *UnlockPublisher {
	return &UnlockPublisher{conn: conn, log: log}
}

func UnlockSubject(userID string) string {
	return unlockSubjectPrefix + userID
}

// HandleUnlock is the UnlockBus subscriber. Publish failures are logged only.
func (p *UnlockPublisher) HandleUnlock(ev events.UnlockEvent) {
	if err := p.publish(ev); err != nil {
		p.log.Warnf("UnlockPublisher: %v", err)
	}
}

func (p *UnlockPublisher) publish(ev events.UnlockEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode unlock %s: %w", ev.Achievement.ID, err)
	}
	if err := p.conn.Publish(UnlockSubject(ev.UserID), data); err != nil {
		return fmt.Errorf("failed to publish unlock %s for user %s: %w", ev.Achievement.ID, ev.UserID, err)
	}
	return nil
}
