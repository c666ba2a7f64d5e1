package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a chat message exchanged inside a conversation between a buyer
// and a seller. Messages are immutable once created.
type Message struct {
	ID           uuid.UUID
	Conversation int
	Sender       UserID
	Recipient    UserID
	Content      string
	Lang         string
	CreatedAt    time.Time
}
