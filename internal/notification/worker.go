package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"truck-inspection-backend/internal/model"
	"truck-inspection-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Alert describes a submitted inspection that found defects.
type Alert struct {
	TruckNumber int64
	Inspector   string
	Defects     int
}

// Message is the notification text sent to subscribers.
func (a Alert) Message() string {
	return fmt.Sprintf("Truck %d: %d defect(s) reported by %s", a.TruckNumber, a.Defects, a.Inspector)
}

// AlertFor returns the alert for a record, or false when it has no defects.
func AlertFor(rec model.InspectionRecord) (Alert, bool) {
	_, defects := rec.Results.Counts()
	if defects == 0 {
		return Alert{}, false
	}
	return Alert{TruckNumber: rec.TruckNumber, Inspector: rec.Inspector, Defects: defects}, true
}

// WorkerPool manages a pool of workers for sending defect alerts.
type WorkerPool struct {
	size    int
	jobs    chan Alert
	subs    store.Subscriptions
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.SugaredLogger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs store.Subscriptions, webpushOptions *webpush.Options, logger *zap.SugaredLogger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Alert, size*16),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debugw("notification worker started", "worker", id)
	for {
		select {
		case alert := <-wp.jobs:
			wp.sendAlert(ctx, alert)
		case <-ctx.Done():
			wp.logger.Debugw("notification worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues an alert. It never blocks the caller; when the queue is
// full the alert is dropped and logged.
func (wp *WorkerPool) Dispatch(alert Alert) bool {
	select {
	case wp.jobs <- alert:
		return true
	default:
		wp.logger.Warnw("notification queue full, dropping alert", "truck", alert.TruckNumber)
		return false
	}
}

// Notify dispatches an alert for a submitted record when it contains defects.
// It matches checklist.Options.OnSubmit.
func (wp *WorkerPool) Notify(rec model.InspectionRecord) {
	if alert, ok := AlertFor(rec); ok {
		wp.Dispatch(alert)
	}
}

func (wp *WorkerPool) sendAlert(ctx context.Context, alert Alert) {
	subscriptions, err := wp.subs.SubscriptionsForTruck(ctx, alert.TruckNumber)
	if err != nil {
		wp.logger.Errorw("failed to fetch subscriptions", "truck", alert.TruckNumber, "err", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	wp.logger.Infow("sending defect alerts", "truck", alert.TruckNumber, "subscribers", len(subscriptions))
	payload := []byte(alert.Message())
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warnw("failed to send notification", "endpoint", sub.Endpoint, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.logger.Infow("subscription expired, deleting", "endpoint", sub.Endpoint)
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Errorw("failed to delete expired subscription", "endpoint", sub.Endpoint, "err", err)
		}
	}
}
