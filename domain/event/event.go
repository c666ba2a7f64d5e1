// Package event defines the tagged delivery events flowing from the services
// to connected clients. Each variant knows the wire-level event name a client
// implementation matches on; routing is done by a single type switch in the
// fan-out worker rather than by virtual dispatch.
package event

import (
	"time"

	"market-live/domain"

	"github.com/google/uuid"
)

// Wire-level outbound event names. These are part of the client contract and
// must not change.
const (
	NameUserConnected       = "UserConnected"
	NameUserDisconnected    = "UserDisconnected"
	NameReceiveMessage      = "ReceiveMessage"
	NameReceiveNotification = "ReceiveNotification"
	NameJoinedConversation  = "JoinedConversation"
	NameLeftConversation    = "LeftConversation"
	NameError               = "Error"
)

// DeliveryEvent is anything that can be pushed to a live connection.
type DeliveryEvent interface {
	EventName() string
}

// PresenceChanged is emitted exactly once per Offline→Online or Online→Offline
// transition of a user, never once per connection.
type PresenceChanged struct {
	User   domain.UserID
	Online bool
	At     time.Time
}

func (e PresenceChanged) EventName() string {
	if e.Online {
		return NameUserConnected
	}
	return NameUserDisconnected
}

// MessageReceived carries a persisted chat message to the members of its
// conversation topic.
type MessageReceived struct {
	ID           uuid.UUID
	Conversation int
	Sender       domain.UserID
	Content      string
	Lang         string
	At           time.Time
}

func (e MessageReceived) EventName() string { return NameReceiveMessage }

// Topic returns the conversation topic the message fans out to.
func (e MessageReceived) Topic() domain.Topic {
	return domain.ConversationTopic(e.Conversation)
}

// NotificationReceived carries a persisted notification to every live
// connection of its target user.
type NotificationReceived struct {
	ID        uuid.UUID
	User      domain.UserID
	Kind      string
	Title     string
	Body      string
	Reference string
	At        time.Time
}

func (e NotificationReceived) EventName() string { return NameReceiveNotification }

// TopicJoined acknowledges a successful topic join to the joining connection
// only. It never fans out.
type TopicJoined struct {
	Topic domain.Topic
}

func (e TopicJoined) EventName() string { return NameJoinedConversation }

// TopicLeft acknowledges a topic leave to the leaving connection only.
type TopicLeft struct {
	Topic domain.Topic
}

func (e TopicLeft) EventName() string { return NameLeftConversation }

// ErrorRaised is a unicast reply to the connection whose inbound event failed.
type ErrorRaised struct {
	Reason string
}

func (e ErrorRaised) EventName() string { return NameError }
