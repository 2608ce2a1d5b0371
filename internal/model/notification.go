package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an append-only row addressed to one recipient. Status is a
// free-form label mirroring the triggering event ("pending", "confirmed",
// "paid"); there is no read/unread flag. Consumers see the same logical
// notification on the live channel and on the next poll and deduplicate by ID.
type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NotificationIntent is the outbox payload written alongside every ledger
// mutation. The dispatcher turns it into a durable Notification row and a
// live publish, retrying until both happen.
type NotificationIntent struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
}
