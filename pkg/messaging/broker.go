package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// UserChannel names the per-user live notification channel. Subscribers and
// the dispatcher must agree on this format.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:%s", userID)
}
