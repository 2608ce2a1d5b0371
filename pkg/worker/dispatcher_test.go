package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/pkg/logger"
	"github.com/clinicbook/booking-api/pkg/messaging"
	"github.com/clinicbook/booking-api/pkg/metrics"
)

type fakeOutboxRepo struct {
	pending    []*model.OutboxEvent
	processed  []uuid.UUID
	retried    []uuid.UUID
	deadletter []uuid.UUID
}

func (f *fakeOutboxRepo) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeOutboxRepo) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	f.retried = append(f.retried, id)
	return nil
}

func (f *fakeOutboxRepo) MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent, errMsg string) error {
	f.deadletter = append(f.deadletter, event.ID)
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeNotificationRepo struct {
	created []*model.Notification
	err     error
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.created {
		if existing.ID == n.ID {
			return nil
		}
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("failed to get user: not found")
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error { return nil }

func (f *fakeUserRepo) ListByRole(ctx context.Context, role string) ([]*model.User, error) {
	return nil, nil
}

type fakeBroker struct {
	published map[string][]interface{}
	err       error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][]interface{})}
}

func (f *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published[channel] = append(f.published[channel], message)
	return nil
}

func (f *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBroker) Close() error { return nil }

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func testConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:    10,
		PollInterval: time.Second,
		MaxRetries:   3,
		RetryDelay:   time.Second,
	}
}

func intentEvent(t *testing.T, recipientID uuid.UUID, message, status string) *model.OutboxEvent {
	t.Helper()
	event, err := model.NewNotificationIntentEvent(model.NotificationIntent{
		RecipientID: recipientID,
		Message:     message,
		Status:      status,
	})
	require.NoError(t, err)
	return event
}

func TestDispatcherStoresAndPublishes(t *testing.T) {
	recipient := uuid.New()
	event := intentEvent(t, recipient, "New appointment requested by Jane Doe", "pending")

	outbox := &fakeOutboxRepo{pending: []*model.OutboxEvent{event}}
	notifs := &fakeNotificationRepo{}
	broker := newFakeBroker()

	d := NewDispatcher(outbox, notifs, &fakeUserRepo{}, broker, nil,
		testConfig(), logger.NewLogger(nil), metrics.NewTestMetrics())

	err := d.ProcessBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, notifs.created, 1)
	assert.Equal(t, event.ID, notifs.created[0].ID)
	assert.Equal(t, recipient, notifs.created[0].UserID)
	assert.Equal(t, "New appointment requested by Jane Doe", notifs.created[0].Message)
	assert.Equal(t, "pending", notifs.created[0].Status)

	channel := messaging.UserChannel(recipient)
	assert.Len(t, broker.published[channel], 1)

	require.Len(t, outbox.processed, 1)
	assert.Equal(t, event.ID, outbox.processed[0])
}

func TestDispatcherRedeliveryDoesNotDuplicate(t *testing.T) {
	recipient := uuid.New()
	event := intentEvent(t, recipient, "hello", "pending")

	outbox := &fakeOutboxRepo{pending: []*model.OutboxEvent{event}}
	notifs := &fakeNotificationRepo{}
	broker := newFakeBroker()

	d := NewDispatcher(outbox, notifs, &fakeUserRepo{}, broker, nil,
		testConfig(), logger.NewLogger(nil), metrics.NewTestMetrics())

	require.NoError(t, d.ProcessBatch(context.Background()))
	require.NoError(t, d.ProcessBatch(context.Background()))

	assert.Len(t, notifs.created, 1)
}

func TestDispatcherRetriesOnPublishFailure(t *testing.T) {
	event := intentEvent(t, uuid.New(), "hello", "pending")

	outbox := &fakeOutboxRepo{pending: []*model.OutboxEvent{event}}
	broker := newFakeBroker()
	broker.err = errors.New("redis down")

	d := NewDispatcher(outbox, &fakeNotificationRepo{}, &fakeUserRepo{}, broker, nil,
		testConfig(), logger.NewLogger(nil), metrics.NewTestMetrics())

	require.NoError(t, d.ProcessBatch(context.Background()))

	assert.Empty(t, outbox.processed)
	require.Len(t, outbox.retried, 1)
	assert.Equal(t, event.ID, outbox.retried[0])
}

func TestDispatcherDeadLettersAfterMaxRetries(t *testing.T) {
	event := intentEvent(t, uuid.New(), "hello", "pending")
	event.RetryCount = 2

	outbox := &fakeOutboxRepo{pending: []*model.OutboxEvent{event}}
	notifs := &fakeNotificationRepo{err: errors.New("db down")}

	d := NewDispatcher(outbox, notifs, &fakeUserRepo{}, newFakeBroker(), nil,
		testConfig(), logger.NewLogger(nil), metrics.NewTestMetrics())

	require.NoError(t, d.ProcessBatch(context.Background()))

	assert.Empty(t, outbox.retried)
	require.Len(t, outbox.deadletter, 1)
	assert.Equal(t, event.ID, outbox.deadletter[0])
}

func TestDispatcherUnknownEventTypeGoesToRetry(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"foo": "bar"})
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: "something.else",
		Payload:   payload,
		Status:    model.OutboxStatusPending,
	}

	outbox := &fakeOutboxRepo{pending: []*model.OutboxEvent{event}}

	d := NewDispatcher(outbox, &fakeNotificationRepo{}, &fakeUserRepo{}, newFakeBroker(), nil,
		testConfig(), logger.NewLogger(nil), metrics.NewTestMetrics())

	require.NoError(t, d.ProcessBatch(context.Background()))
	assert.Len(t, outbox.retried, 1)
}

func TestDispatcherEmailIsBestEffort(t *testing.T) {
	recipient := uuid.New()
	event := intentEvent(t, recipient, "hello", "pending")

	outbox := &fakeOutboxRepo{pending: []*model.OutboxEvent{event}}
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{}}
	sender := &fakeSender{err: errors.New("smtp refused")}

	d := NewDispatcher(outbox, &fakeNotificationRepo{}, users, newFakeBroker(), sender,
		testConfig(), logger.NewLogger(nil), metrics.NewTestMetrics())

	require.NoError(t, d.ProcessBatch(context.Background()))

	// The event still completes even though the mail hop failed.
	require.Len(t, outbox.processed, 1)
}

func TestDispatcherSendsEmailWhenConfigured(t *testing.T) {
	recipient := uuid.New()
	event := intentEvent(t, recipient, "hello", "pending")

	user := &model.User{Email: "doc@example.com", Role: model.UserRoleDoctor, Name: "Dr. Who"}
	user.ID = recipient

	outbox := &fakeOutboxRepo{pending: []*model.OutboxEvent{event}}
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{recipient: user}}
	sender := &fakeSender{}

	d := NewDispatcher(outbox, &fakeNotificationRepo{}, users, newFakeBroker(), sender,
		testConfig(), logger.NewLogger(nil), metrics.NewTestMetrics())

	require.NoError(t, d.ProcessBatch(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "doc@example.com", sender.sent[0])
}

func TestDispatcherBackoffDoubles(t *testing.T) {
	d := NewDispatcher(&fakeOutboxRepo{}, &fakeNotificationRepo{}, &fakeUserRepo{},
		newFakeBroker(), nil, testConfig(), logger.NewLogger(nil), metrics.NewTestMetrics())

	assert.Equal(t, time.Second, d.backoff(0))
	assert.Equal(t, 2*time.Second, d.backoff(1))
	assert.Equal(t, 4*time.Second, d.backoff(2))
}
