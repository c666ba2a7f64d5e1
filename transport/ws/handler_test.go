package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"market-live/auth"
	"market-live/domain/event"
	"market-live/moderation"
	"market-live/observability"
	"market-live/realtime"
	"market-live/realtime/workers"
	"market-live/repositories"
	"market-live/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// testStack is the full pipeline behind one httptest server: registry,
// groups, dispatcher, running fan-out worker and badger-backed repositories.
type testStack struct {
	server *httptest.Server
	tokens *auth.TokenManager
}

func newTestStack(t *testing.T) testStack {
	t.Helper()
	req := require.New(t)
	log := slog.Default()

	options := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	stats := observability.NewDeliveryStats()
	dispatcher := realtime.NewDispatcher(log, stats, 256)
	registry := realtime.NewRegistry(dispatcher)
	groups := realtime.NewGroups()

	telemetry := make(chan event.DeliveryEvent, 256)
	fanout := workers.NewFanoutWorker(log, registry, groups, stats, dispatcher.Deliveries(), telemetry, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = fanout.Run(ctx) }()

	moderator, err := moderation.NewModerator([]string{"scammer"}, '*', log)
	req.NoError(err)

	limit := 50
	service := services.NewLiveService(
		log, registry, groups, dispatcher, auth.OpenAuthorizer{}, &moderator,
		repositories.NewMessageRepository(db, log, &limit),
		repositories.NewNotificationRepository(db, log),
	)

	tokens := auth.NewTokenManager([]byte("transport-test-key"), "market-live", time.Hour)
	authService := services.NewAuthService(log, repositories.NewUserRepository(db), tokens)
	handler := NewHandler(log, tokens, registry, groups, service, 64)

	server := httptest.NewServer(NewRouter(log, handler, authService))
	t.Cleanup(server.Close)
	return testStack{server: server, tokens: tokens}
}

func (s testStack) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	if userID != "" {
		token, err := s.tokens.GenerateToken(userID, []string{"user"})
		require.NoError(t, err)
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventName string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Event: eventName, Payload: raw}))
}

// readUntil skips unrelated frames (presence churn from parallel
// connections) until the wanted event arrives or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, eventName string) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame), "waiting for %s", eventName)
		if frame.Event == eventName {
			return frame
		}
	}
}

func Test_Unauthenticated_Send_Is_Rejected_With_Error_Frame(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	// Given a connection that never presented a token
	conn := stack.dial(t, "")

	// When it tries to send a message
	send(t, conn, InSendMessage, SendMessagePayload{
		Recipient:    "bob",
		Conversation: 7,
		Content:      "hello",
	})

	// Then it receives exactly one Error frame naming the cause
	frame := readUntil(t, conn, event.NameError)
	var reason string
	req.NoError(json.Unmarshal(frame.Payload, &reason))
	req.Contains(reason, "not authenticated")
}

func Test_Presence_Broadcast_On_Connect_And_Disconnect(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	// Given alice is connected
	alice := stack.dial(t, "alice")

	// When bob connects
	bob := stack.dial(t, "bob")

	// Then alice sees bob come online, exactly once
	frame := readUntil(t, alice, event.NameUserConnected)
	var presence struct {
		User string `json:"user"`
	}
	req.NoError(json.Unmarshal(frame.Payload, &presence))
	req.Equal("bob", presence.User)

	// When bob disconnects
	req.NoError(bob.Close())

	// Then alice sees bob go offline
	frame = readUntil(t, alice, event.NameUserDisconnected)
	req.NoError(json.Unmarshal(frame.Payload, &presence))
	req.Equal("bob", presence.User)
}

func Test_Join_Send_And_Receive_In_Conversation(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := stack.dial(t, "alice")
	bob := stack.dial(t, "bob")

	// Both join the conversation and get their acknowledgement
	for _, conn := range []*websocket.Conn{alice, bob} {
		send(t, conn, InJoinTopic, TopicPayload{Conversation: 7})
		frame := readUntil(t, conn, event.NameJoinedConversation)
		var topic string
		req.NoError(json.Unmarshal(frame.Payload, &topic))
		req.Equal("conversation_7", topic)
	}

	// When alice sends a message
	send(t, alice, InSendMessage, SendMessagePayload{
		Recipient:    "bob",
		Conversation: 7,
		Content:      "is the textbook still available?",
	})

	// Then bob receives it through the topic
	frame := readUntil(t, bob, event.NameReceiveMessage)
	var message struct {
		Sender  string `json:"sender"`
		Content string `json:"content"`
	}
	req.NoError(json.Unmarshal(frame.Payload, &message))
	req.Equal("alice", message.Sender)
	req.Equal("is the textbook still available?", message.Content)

	// And bob also receives the notification on his user sinks
	frame = readUntil(t, bob, event.NameReceiveNotification)
	var notification struct {
		Kind  string `json:"kind"`
		Title string `json:"title"`
	}
	req.NoError(json.Unmarshal(frame.Payload, &notification))
	req.Equal("message", notification.Kind)
	req.Contains(notification.Title, "alice")
}

func Test_Leave_Topic_Stops_Message_Delivery(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := stack.dial(t, "alice")
	bob := stack.dial(t, "bob")

	send(t, bob, InJoinTopic, TopicPayload{Conversation: 7})
	readUntil(t, bob, event.NameJoinedConversation)
	send(t, bob, InLeaveTopic, TopicPayload{Conversation: 7})
	readUntil(t, bob, event.NameLeftConversation)

	send(t, alice, InSendMessage, SendMessagePayload{
		Recipient:    "bob",
		Conversation: 7,
		Content:      "hello",
	})

	// Bob still gets the notification (user-targeted) but no topic message
	readUntil(t, bob, event.NameReceiveNotification)
	req.NoError(bob.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	for {
		var frame Frame
		if err := bob.ReadJSON(&frame); err != nil {
			break
		}
		req.NotEqual(event.NameReceiveMessage, frame.Event)
	}
}

func Test_History_And_Notifications_Pull(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	alice := stack.dial(t, "alice")

	for i := 0; i < 3; i++ {
		send(t, alice, InSendMessage, SendMessagePayload{
			Recipient:    "bob",
			Conversation: 7,
			Content:      fmt.Sprintf("message %d", i),
		})
		// Serialize writes so history ordering is deterministic
		time.Sleep(5 * time.Millisecond)
	}

	send(t, alice, InHistory, HistoryPayload{Conversation: 7})
	frame := readUntil(t, alice, OutHistory)
	var history struct {
		Conversation int `json:"conversation"`
		Messages     []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	req.NoError(json.Unmarshal(frame.Payload, &history))
	req.Equal(7, history.Conversation)
	req.Len(history.Messages, 3)
	// Newest first
	req.Equal("message 2", history.Messages[0].Content)

	// Bob pulls his unread notifications on a fresh connection
	bob := stack.dial(t, "bob")
	send(t, bob, InNotifications, struct{}{})
	frame = readUntil(t, bob, OutNotifications)
	var notifications struct {
		Notifications []struct {
			Kind string `json:"kind"`
		} `json:"notifications"`
	}
	req.NoError(json.Unmarshal(frame.Payload, &notifications))
	req.Len(notifications.Notifications, 3)
}

func Test_Unknown_Event_Gets_Error_Frame(t *testing.T) {
	req := require.New(t)
	stack := newTestStack(t)

	conn := stack.dial(t, "alice")
	send(t, conn, "fetchEverything", struct{}{})

	frame := readUntil(t, conn, event.NameError)
	var reason string
	req.NoError(json.Unmarshal(frame.Payload, &reason))
	req.Contains(reason, "unknown event")
}
