package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicbook/booking-api/internal/email"
	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/repository"
	"github.com/clinicbook/booking-api/pkg/logger"
	"github.com/clinicbook/booking-api/pkg/messaging"
	"github.com/clinicbook/booking-api/pkg/metrics"
)

type DispatcherConfig struct {
	BatchSize       int
	PollInterval    time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	CleanupInterval time.Duration
	RetentionPeriod time.Duration
}

// Dispatcher drains the outbox and fans each notification intent out to the
// durable store, the live channel and, when a sender is configured, email.
// The durable write reuses the event ID, so redelivery after a crash between
// the write and the ack cannot duplicate rows.
type Dispatcher struct {
	outboxRepo repository.OutboxRepository
	notifRepo  repository.NotificationRepository
	userRepo   repository.UserRepository
	broker     messaging.Broker
	sender     email.Sender
	config     DispatcherConfig
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewDispatcher(
	outboxRepo repository.OutboxRepository,
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	broker messaging.Broker,
	sender email.Sender,
	config DispatcherConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		panic("MaxRetries must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &Dispatcher{
		outboxRepo: outboxRepo,
		notifRepo:  notifRepo,
		userRepo:   userRepo,
		broker:     broker,
		sender:     sender,
		config:     config,
		logger:     log,
		metrics:    m,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	var cleanup <-chan time.Time
	if d.config.CleanupInterval > 0 {
		t := time.NewTicker(d.config.CleanupInterval)
		defer t.Stop()
		cleanup = t.C
	}

	d.logger.Info("starting notification dispatcher")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down notification dispatcher")
			return
		case <-ticker.C:
			if err := d.ProcessBatch(ctx); err != nil {
				d.logger.Error(err, "failed to process outbox batch")
			}
		case <-cleanup:
			d.cleanupProcessed(ctx)
		}
	}
}

// ProcessBatch drains one batch of pending events. Exported so tests and the
// worker entrypoint can drive the loop themselves.
func (d *Dispatcher) ProcessBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(d.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := d.outboxRepo.GetPendingEventsWithLock(ctx, d.config.BatchSize)
	if err != nil {
		d.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "error").Inc()
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	d.metrics.DatabaseOperations.WithLabelValues("get_pending_events", "success").Inc()

	for _, event := range events {
		if err := d.dispatch(ctx, event); err != nil {
			d.fail(ctx, event, err)
			continue
		}

		d.metrics.OutboxEventsProcessed.Inc()
		if err := d.outboxRepo.MarkProcessed(ctx, event.ID); err != nil {
			d.logger.Error(err, "failed to mark event processed", "event_id", event.ID.String())
		}
	}

	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, event *model.OutboxEvent) error {
	if event.EventType != model.EventNotificationIntent {
		return fmt.Errorf("unknown event type: %s", event.EventType)
	}

	var intent model.NotificationIntent
	if err := json.Unmarshal(event.Payload, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal intent: %w", err)
	}

	notification := &model.Notification{
		ID:      event.ID,
		UserID:  intent.RecipientID,
		Message: intent.Message,
		Status:  intent.Status,
	}
	if err := d.notifRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}
	d.metrics.NotificationsDelivered.WithLabelValues("store").Inc()

	if err := d.broker.Publish(ctx, messaging.UserChannel(intent.RecipientID), notification); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	d.metrics.NotificationsDelivered.WithLabelValues("live").Inc()

	if d.sender != nil {
		d.sendEmail(ctx, &intent)
	}

	return nil
}

// sendEmail is best effort. A bounced mail must not push the event into
// retry, or the recipient would see the in-app notification again.
func (d *Dispatcher) sendEmail(ctx context.Context, intent *model.NotificationIntent) {
	user, err := d.userRepo.Get(ctx, intent.RecipientID)
	if err != nil {
		d.logger.Warn("skipping email, recipient lookup failed", "recipient_id", intent.RecipientID.String())
		return
	}

	if err := d.sender.Send(user.Email, "Appointment update", intent.Message); err != nil {
		d.logger.Error(err, "failed to send notification email", "recipient_id", intent.RecipientID.String())
		return
	}
	d.metrics.NotificationsDelivered.WithLabelValues("email").Inc()
}

func (d *Dispatcher) fail(ctx context.Context, event *model.OutboxEvent, dispatchErr error) {
	d.metrics.OutboxEventsFailed.Inc()
	d.logger.Error(dispatchErr, "failed to dispatch event",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"retry_count", event.RetryCount)

	if event.RetryCount+1 >= d.config.MaxRetries {
		d.metrics.OutboxEventsDeadLetter.Inc()
		if err := d.outboxRepo.MoveToDeadLetter(ctx, event, dispatchErr.Error()); err != nil {
			d.logger.Error(err, "failed to move event to dead letter", "event_id", event.ID.String())
		}
		return
	}

	d.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := time.Now().Add(d.backoff(event.RetryCount))
	if err := d.outboxRepo.MarkRetry(ctx, event.ID, dispatchErr.Error(), retryAt); err != nil {
		d.logger.Error(err, "failed to mark event for retry", "event_id", event.ID.String())
	}
}

// backoff doubles the delay per attempt: delay, 2*delay, 4*delay, ...
func (d *Dispatcher) backoff(retryCount int) time.Duration {
	delay := d.config.RetryDelay
	for i := 0; i < retryCount; i++ {
		delay *= 2
	}
	return delay
}

func (d *Dispatcher) cleanupProcessed(ctx context.Context) {
	if d.config.RetentionPeriod <= 0 {
		return
	}
	cutoff := time.Now().Add(-d.config.RetentionPeriod)
	deleted, err := d.outboxRepo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		d.logger.Error(err, "failed to clean up processed events")
		return
	}
	if deleted > 0 {
		d.logger.Info("cleaned up processed events", "deleted", deleted)
	}
}
