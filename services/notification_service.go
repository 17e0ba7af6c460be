package services

import (
	"context"
	"fmt"

	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/notification"
)

type NotificationService struct {
	devices DeviceRegistry
	log     logger.Logger
}

func NewNotificationService(devices DeviceRegistry, log logger.Logger) *NotificationService {
	return &NotificationService{devices: devices, log: log}
}

// RegisterDevice stores a push token for the user. Re-registering a token
// updates its platform.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid device: %w", err)
	}

	if err := s.devices.RegisterDevice(ctx, userID, req); err != nil {
		return err
	}

	s.log.Debugf("RegisterDevice: %s device registered for user %s", req.Platform, userID)
	return nil
}
