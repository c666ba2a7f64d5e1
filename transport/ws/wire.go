// Package ws is the websocket transport: one Frame-based wire protocol, one
// Client per connection, and a Handler that upgrades, authenticates and
// routes inbound frames to the live service.
package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"market-live/domain"
	"market-live/domain/event"
)

// Inbound event names sent by clients. Part of the client contract.
const (
	InSendMessage   = "sendMessage"
	InJoinTopic     = "joinTopic"
	InLeaveTopic    = "leaveTopic"
	InHistory       = "history"
	InNotifications = "notifications"
)

// Reply frame names for pull-style requests.
const (
	OutHistory       = "History"
	OutNotifications = "Notifications"
)

// Frame is the envelope of every message in both directions.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SendMessagePayload struct {
	Recipient    string `json:"recipient"`
	Conversation int    `json:"conversation"`
	Content      string `json:"content"`
}

type TopicPayload struct {
	Conversation int `json:"conversation"`
}

type HistoryPayload struct {
	Conversation int     `json:"conversation"`
	Cursor       *string `json:"cursor,omitempty"`
}

type presencePayload struct {
	User string    `json:"user"`
	At   time.Time `json:"at"`
}

type messagePayload struct {
	ID           string    `json:"id"`
	Conversation int       `json:"conversation"`
	Sender       string    `json:"sender"`
	Content      string    `json:"content"`
	Lang         string    `json:"lang,omitempty"`
	At           time.Time `json:"at"`
}

type notificationPayload struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Reference string    `json:"reference,omitempty"`
	At        time.Time `json:"at"`
}

// ToFrame maps a delivery event to its wire frame. The event names are the
// ones client implementations match on. Topic acknowledgements and errors
// carry a bare string payload.
func ToFrame(e event.DeliveryEvent) (Frame, error) {
	var payload any
	switch v := e.(type) {
	case event.PresenceChanged:
		payload = presencePayload{User: string(v.User), At: v.At}
	case event.MessageReceived:
		payload = messagePayload{
			ID:           v.ID.String(),
			Conversation: v.Conversation,
			Sender:       string(v.Sender),
			Content:      v.Content,
			Lang:         v.Lang,
			At:           v.At,
		}
	case event.NotificationReceived:
		payload = notificationPayload{
			ID:        v.ID.String(),
			Kind:      v.Kind,
			Title:     v.Title,
			Body:      v.Body,
			Reference: v.Reference,
			At:        v.At,
		}
	case event.TopicJoined:
		payload = string(v.Topic)
	case event.TopicLeft:
		payload = string(v.Topic)
	case event.ErrorRaised:
		payload = v.Reason
	default:
		return Frame{}, fmt.Errorf("no wire mapping for event %q", e.EventName())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: e.EventName(), Payload: raw}, nil
}

// HistoryFrame builds the reply to a history pull.
func HistoryFrame(conversation int, messages []domain.Message, cursor *string) (Frame, error) {
	payloads := make([]messagePayload, 0, len(messages))
	for _, m := range messages {
		payloads = append(payloads, messagePayload{
			ID:           m.ID.String(),
			Conversation: m.Conversation,
			Sender:       string(m.Sender),
			Content:      m.Content,
			Lang:         m.Lang,
			At:           m.CreatedAt,
		})
	}
	raw, err := json.Marshal(struct {
		Conversation int              `json:"conversation"`
		Messages     []messagePayload `json:"messages"`
		Cursor       *string          `json:"cursor,omitempty"`
	}{Conversation: conversation, Messages: payloads, Cursor: cursor})
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: OutHistory, Payload: raw}, nil
}

// NotificationsFrame builds the reply to an unread notifications pull.
func NotificationsFrame(notifications []domain.Notification) (Frame, error) {
	payloads := make([]notificationPayload, 0, len(notifications))
	for _, n := range notifications {
		payloads = append(payloads, notificationPayload{
			ID:        n.ID.String(),
			Kind:      n.Kind,
			Title:     n.Title,
			Body:      n.Body,
			Reference: n.Reference,
			At:        n.CreatedAt,
		})
	}
	raw, err := json.Marshal(struct {
		Notifications []notificationPayload `json:"notifications"`
	}{Notifications: payloads})
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: OutNotifications, Payload: raw}, nil
}
