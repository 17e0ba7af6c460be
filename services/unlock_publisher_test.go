package services

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideTrackAPI/internal/events"
	"peptideTrackAPI/internal/logger"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestUnlockPublisher(t *testing.T) {
	conn := &fakePublisher{}
	p := NewUnlockPublisher(conn, logger.Nop())

	p.HandleUnlock(unlockEvent("user_1", "week_streak"))

	require.Equal(t, []string{"achievements.unlocked.user_1"}, conn.subjects)

	var got events.UnlockEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	assert.Equal(t, "week_streak", got.Achievement.ID)
	assert.Equal(t, 7, got.Progress)
}

func TestUnlockPublisher_ErrorIsSwallowed(t *testing.T) {
	p := NewUnlockPublisher(&fakePublisher{err: errors.New("nats down")}, logger.Nop())

	assert.NotPanics(t, func() { p.HandleUnlock(unlockEvent("user_1", "first_injection")) })
	assert.Error(t, p.publish(unlockEvent("user_1", "first_injection")))
}
