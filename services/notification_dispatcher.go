package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"peptideTrackAPI/internal/events"
	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationDispatcher turns unlock events into stored notifications and
// push messages on a small worker pool, off the request path.
type NotificationDispatcher struct {
	store        NotificationStore
	pushProvider PushNotificationProvider
	log          logger.Logger
	workers      int
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

type DispatchJob struct {
	Event events.UnlockEvent
}

func NewNotificationDispatcher(store NotificationStore, log logger.Logger, workers, queueSize int) *NotificationDispatcher {
	if workers <= 0 {
		workers = 5
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	d := &NotificationDispatcher{
		store:    store,
		log:      log,
		workers:  workers,
		jobQueue: make(chan *DispatchJob, queueSize),
		stopChan: make(chan struct{}),
	}
	d.startWorkers()
	return d
}

// SetPushProvider injects the FCM provider from main.go. Without one,
// notifications are stored and marked sent.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			for {
				select {
				case job := <-d.jobQueue:
					d.processJob(job)
				default:
					return
				}
			}
		}
	}
}

// HandleUnlock is the UnlockBus subscriber. It never blocks the publisher;
// when the queue is full the event is dropped.
func (d *NotificationDispatcher) HandleUnlock(ev events.UnlockEvent) {
	select {
	case <-d.stopChan:
		d.log.Warnf("dispatcher: stopped, dropping unlock %s for user %s", ev.Achievement.ID, ev.UserID)
		notificationsDispatched.WithLabelValues("dropped").Inc()
		return
	default:
	}

	select {
	case d.jobQueue <- &DispatchJob{Event: ev}:
	default:
		d.log.Warnf("dispatcher: queue full, dropping unlock %s for user %s", ev.Achievement.ID, ev.UserID)
		notificationsDispatched.WithLabelValues("dropped").Inc()
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ev := job.Event
	notif := &notification.Notification{
		ID:     uuid.New(),
		UserID: ev.UserID,
		Type:   notification.NotificationAchievement,
		Status: notification.StatusPending,
		Title:  "Achievement unlocked",
		Body:   fmt.Sprintf("%s %s: %s", ev.Achievement.Icon, ev.Achievement.Title, ev.Achievement.Description),
		Data: map[string]any{
			"achievement_id": ev.Achievement.ID,
			"points":         ev.Achievement.Points,
		},
		CreatedAt: ev.UnlockedAt,
	}

	if err := d.store.InsertNotification(ctx, notif); err != nil {
		d.log.Errorf("dispatcher: failed to store notification for user %s: %v", ev.UserID, err)
		notificationsDispatched.WithLabelValues("failed").Inc()
		return
	}

	if d.pushProvider != nil {
		tokens, err := d.store.DeviceTokens(ctx, ev.UserID)
		if err != nil {
			d.log.Warnf("dispatcher: failed to load device tokens for user %s: %v", ev.UserID, err)
		}

		if len(tokens) > 0 {
			if err := d.pushProvider.SendPush(ctx, tokens, notif.Title, notif.Body, notif.Data); err != nil {
				d.log.Warnf("dispatcher: push failed for user %s: %v", ev.UserID, err)
				d.mark(ctx, notif, false, err.Error())
				notificationsDispatched.WithLabelValues("failed").Inc()
				return
			}
		}
	}

	d.mark(ctx, notif, true, "")
	notificationsDispatched.WithLabelValues("sent").Inc()
}

func (d *NotificationDispatcher) mark(ctx context.Context, notif *notification.Notification, sent bool, failure string) {
	if err := d.store.MarkNotificationSent(ctx, notif.ID.String(), sent, failure); err != nil {
		d.log.Warnf("dispatcher: failed to mark notification %s: %v", notif.ID, err)
	}
}

// Stop drains queued jobs and waits for the workers to exit.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.log.Infof("Stopping notification dispatcher...")
		close(d.stopChan)
		d.wg.Wait()
		d.log.Infof("Notification dispatcher stopped")
	})
}
