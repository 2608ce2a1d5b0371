package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/repository"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/messaging"
)

// Service serves the consumer side of the notification channel. Writes come
// only from the dispatcher; a client may see the same notification on the
// live stream and on the next poll and deduplicates by id.
type Service struct {
	repo   repository.NotificationRepository
	broker messaging.Broker
}

func NewService(repo repository.NotificationRepository, broker messaging.Broker) *Service {
	return &Service{
		repo:   repo,
		broker: broker,
	}
}

// ListForUser returns the durable notification history, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return notifications, nil
}

// Subscribe opens the live feed for one user. The channel closes when ctx is
// cancelled.
func (s *Service) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan []byte, error) {
	ch, err := s.broker.Subscribe(ctx, messaging.UserChannel(userID))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return ch, nil
}
