package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds currently produced by the marketplace.
const (
	NotificationMessage = "message"
	NotificationOrder   = "order"
	NotificationSystem  = "system"
)

// Notification is a durable per-user notification. It is written to storage
// before any delivery attempt; realtime delivery is best-effort on top.
type Notification struct {
	ID        uuid.UUID
	User      UserID
	Kind      string
	Title     string
	Body      string
	Reference string
	Read      bool
	CreatedAt time.Time
}
