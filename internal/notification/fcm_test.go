package notification

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideTrackAPI/internal/logger"
)

type fakeSender struct {
	messages []*messaging.Message
	failFor  map[string]bool
}

func (f *fakeSender) Send(_ context.Context, m *messaging.Message) (string, error) {
	if f.failFor[m.Token] {
		return "", errors.New("unregistered")
	}
	f.messages = append(f.messages, m)
	return "msg-" + m.Token, nil
}

func TestSendPush_PerPlatformConfig(t *testing.T) {
	sender := &fakeSender{}
	svc := NewFCMServiceWithSender(sender, logger.Nop())

	err := svc.SendPush(context.Background(), []DeviceToken{
		{Token: "a", Platform: "android"},
		{Token: "i", Platform: "ios"},
	}, "Achievement unlocked", "First Dose", map[string]any{"points": 10})

	require.NoError(t, err)
	require.Len(t, sender.messages, 2)
	assert.NotNil(t, sender.messages[0].Android)
	assert.Nil(t, sender.messages[0].APNS)
	assert.NotNil(t, sender.messages[1].APNS)
	assert.Equal(t, "10", sender.messages[0].Data["points"])
}

func TestSendPush_PartialAndTotalFailure(t *testing.T) {
	sender := &fakeSender{failFor: map[string]bool{"bad": true}}
	svc := NewFCMServiceWithSender(sender, logger.Nop())
	ctx := context.Background()

	assert.NoError(t, svc.SendPush(ctx, []DeviceToken{{Token: "bad"}, {Token: "good"}}, "t", "b", nil))
	assert.Error(t, svc.SendPush(ctx, []DeviceToken{{Token: "bad"}}, "t", "b", nil))
	assert.NoError(t, svc.SendPush(ctx, nil, "t", "b", nil))
}
