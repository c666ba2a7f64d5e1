// Package domain contains core concepts of the marketplace realtime layer.
// No runtime, network, or UI logic should be added here.
package domain

import "fmt"

// UserID is the logical identity of a marketplace user, as extracted from an
// authenticated transport session. A user may hold several live connections
// (multiple tabs or devices) at the same time.
type UserID string

// ConnectionID identifies a single live transport connection. It is generated
// by the transport layer at connect time and dies with the connection.
type ConnectionID string

// Topic is a named broadcast group. Connections subscribe and unsubscribe
// dynamically; a topic exists only while it has at least one member.
type Topic string

// ConversationTopic builds the canonical topic name for a conversation.
func ConversationTopic(conversation int) Topic {
	return Topic(fmt.Sprintf("conversation_%d", conversation))
}
