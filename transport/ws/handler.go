package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"market-live/contract"
	"market-live/domain"
	"market-live/domain/event"
	"market-live/services"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

// Handler upgrades HTTP requests to websocket connections and routes every
// inbound frame through a single dispatch function. Unauthenticated
// connections are accepted but never registered: presence and delivery only
// see them once a valid token was presented at upgrade time.
type Handler struct {
	log        *slog.Logger
	upgrader   websocket.Upgrader
	resolver   contract.IIdentityResolver
	registry   contract.IRegistry
	groups     contract.IGroups
	service    *services.LiveService
	sendBuffer int
}

func NewHandler(log *slog.Logger, resolver contract.IIdentityResolver, registry contract.IRegistry,
	groups contract.IGroups, service *services.LiveService, sendBuffer int) *Handler {
	return &Handler{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients come from the marketplace frontend on another
			// origin; token auth is the actual gate.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		resolver:   resolver,
		registry:   registry,
		groups:     groups,
		service:    service,
		sendBuffer: sendBuffer,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, _ := h.resolver.Resolve(bearerToken(r))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := NewClient(h.log, conn, domain.ConnectionID(xid.New().String()), user, h.sendBuffer)
	h.log.Info("Connection opened",
		slog.String("connection", string(client.ID())),
		slog.String("user", string(user)))

	if user != "" {
		h.registry.Connect(user, client.ID(), client)
	}
	defer h.teardown(client)

	go client.WritePump()
	client.ReadPump(r.Context(), func(ctx context.Context, frame Frame) {
		h.route(ctx, client, frame)
	})
}

// teardown is idempotent per connection: the registry and groups both treat
// unknown pairs as no-ops, so a crash path and the normal path can overlap.
func (h *Handler) teardown(client *Client) {
	if client.User() != "" {
		h.registry.Disconnect(client.User(), client.ID())
	}
	h.groups.LeaveAll(client.ID())
	client.close()
	h.log.Info("Connection closed", slog.String("connection", string(client.ID())))
}

// route is the single dispatch point for inbound frames. Every failure comes
// back to the caller as an Error frame; nothing is broadcast.
func (h *Handler) route(ctx context.Context, client *Client, frame Frame) {
	switch frame.Event {
	case InSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			h.replyError(ctx, client, "malformed sendMessage payload")
			return
		}
		_, err := h.service.SendMessage(ctx, services.SendMessageCommand{
			Sender:       client.User(),
			Recipient:    domain.UserID(payload.Recipient),
			Conversation: payload.Conversation,
			Content:      payload.Content,
		})
		if err != nil {
			h.replyError(ctx, client, err.Error())
		}

	case InJoinTopic:
		var payload TopicPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			h.replyError(ctx, client, "malformed joinTopic payload")
			return
		}
		if err := h.service.JoinConversation(ctx, client.User(), client.ID(), payload.Conversation, client); err != nil {
			h.replyError(ctx, client, err.Error())
		}

	case InLeaveTopic:
		var payload TopicPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			h.replyError(ctx, client, "malformed leaveTopic payload")
			return
		}
		if err := h.service.LeaveConversation(ctx, client.User(), client.ID(), payload.Conversation, client); err != nil {
			h.replyError(ctx, client, err.Error())
		}

	case InHistory:
		var payload HistoryPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			h.replyError(ctx, client, "malformed history payload")
			return
		}
		messages, cursor, err := h.service.History(client.User(), payload.Conversation, payload.Cursor)
		if err != nil {
			h.replyError(ctx, client, err.Error())
			return
		}
		reply, err := HistoryFrame(payload.Conversation, messages, cursor)
		if err != nil {
			h.replyError(ctx, client, err.Error())
			return
		}
		_ = client.Push(reply)

	case InNotifications:
		notifications, err := h.service.UnreadNotifications(client.User())
		if err != nil {
			h.replyError(ctx, client, err.Error())
			return
		}
		reply, err := NotificationsFrame(notifications)
		if err != nil {
			h.replyError(ctx, client, err.Error())
			return
		}
		_ = client.Push(reply)

	default:
		h.replyError(ctx, client, "unknown event "+frame.Event)
	}
}

func (h *Handler) replyError(ctx context.Context, client *Client, reason string) {
	_ = client.Consume(ctx, event.ErrorRaised{Reason: reason})
}

// bearerToken extracts the credential from the Authorization header or, for
// browser websocket clients that cannot set headers, from the token query
// parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
