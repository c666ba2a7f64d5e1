// Package services holds the application logic sitting between the transport
// and the realtime/storage layers: message sending, topic membership,
// history and notification pulls, account registration and login.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"market-live/contract"
	"market-live/domain"
	"market-live/domain/event"
	"market-live/errors"
	"market-live/moderation"
	"market-live/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SendMessageCommand is everything the transport knows about an inbound
// sendMessage call. Sender is empty when the connection never authenticated.
type SendMessageCommand struct {
	Sender       domain.UserID
	Recipient    domain.UserID
	Conversation int
	Content      string
}

type LiveService struct {
	log           *slog.Logger
	registry      contract.IRegistry
	groups        contract.IGroups
	dispatcher    contract.IDispatcher
	authorizer    contract.IAuthorizer
	moderator     *moderation.Moderator
	messages      repositories.IMessageRepository
	notifications repositories.INotificationRepository
}

func NewLiveService(
	log *slog.Logger,
	registry contract.IRegistry,
	groups contract.IGroups,
	dispatcher contract.IDispatcher,
	authorizer contract.IAuthorizer,
	moderator *moderation.Moderator,
	messages repositories.IMessageRepository,
	notifications repositories.INotificationRepository,
) *LiveService {
	return &LiveService{
		log:           log,
		registry:      registry,
		groups:        groups,
		dispatcher:    dispatcher,
		authorizer:    authorizer,
		moderator:     moderator,
		messages:      messages,
		notifications: notifications,
	}
}

// SendMessage censors, persists and fans out a chat message, then persists
// and fans out the matching notification for the recipient. The
// authentication check runs before anything is written or dispatched.
func (s *LiveService) SendMessage(ctx context.Context, cmd SendMessageCommand) (domain.Message, error) {
	if cmd.Sender == "" {
		return domain.Message{}, errors.ErrNotAuthenticated
	}
	if cmd.Recipient == "" {
		return domain.Message{}, fmt.Errorf("missing recipient")
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return domain.Message{}, fmt.Errorf("empty message content")
	}

	censored, foundWords := s.moderator.Censor(cmd.Content)
	if len(foundWords) > 0 {
		s.log.Warn("Censored forbidden words",
			slog.String("sender", string(cmd.Sender)),
			slog.Int("conversation", cmd.Conversation),
			slog.Any("words", foundWords))
	}

	message := domain.Message{
		ID:           uuid.New(),
		Conversation: cmd.Conversation,
		Sender:       cmd.Sender,
		Recipient:    cmd.Recipient,
		Content:      censored,
		Lang:         moderation.DetectLang(censored),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.messages.StoreMessage(repositories.DiskMessage{
		ID:           message.ID,
		Conversation: message.Conversation,
		Sender:       string(message.Sender),
		Recipient:    string(message.Recipient),
		Content:      message.Content,
		Lang:         message.Lang,
		At:           message.CreatedAt,
	}); err != nil {
		return domain.Message{}, fmt.Errorf("storing message: %w", err)
	}

	s.dispatcher.Dispatch(event.MessageReceived{
		ID:           message.ID,
		Conversation: message.Conversation,
		Sender:       message.Sender,
		Content:      message.Content,
		Lang:         message.Lang,
		At:           message.CreatedAt,
	})

	if err := s.notifyNewMessage(message); err != nil {
		// The message itself went through. The recipient still sees it in
		// history, so log and keep going.
		s.log.Error("Failed to store message notification",
			slog.String("recipient", string(message.Recipient)),
			slog.Any("error", err))
	}

	return message, nil
}

func (s *LiveService) notifyNewMessage(message domain.Message) error {
	notification := repositories.DiskNotification{
		ID:        uuid.New(),
		User:      string(message.Recipient),
		Kind:      domain.NotificationMessage,
		Title:     fmt.Sprintf("New message from %s", message.Sender),
		Body:      message.Content,
		Reference: fmt.Sprintf("conversation:%d", message.Conversation),
		At:        message.CreatedAt,
	}
	if err := s.notifications.StoreNotification(notification); err != nil {
		return err
	}

	s.dispatcher.Dispatch(event.NotificationReceived{
		ID:        notification.ID,
		User:      message.Recipient,
		Kind:      notification.Kind,
		Title:     notification.Title,
		Body:      notification.Body,
		Reference: notification.Reference,
		At:        notification.At,
	})
	return nil
}

// JoinConversation subscribes a connection to a conversation topic and
// acknowledges the join to that connection only.
func (s *LiveService) JoinConversation(ctx context.Context, user domain.UserID, conn domain.ConnectionID, conversation int, sink contract.EventSink) error {
	if user == "" {
		return errors.ErrNotAuthenticated
	}
	topic := domain.ConversationTopic(conversation)
	if !s.authorizer.MayAccess(user, topic) {
		return errors.ErrNotAuthorized
	}

	s.groups.Join(topic, conn, sink)
	return sink.Consume(ctx, event.TopicJoined{Topic: topic})
}

// LeaveConversation unsubscribes a connection from a conversation topic and
// acknowledges the leave to that connection only. Leaving a topic the
// connection never joined is a no-op apart from the acknowledgement.
func (s *LiveService) LeaveConversation(ctx context.Context, user domain.UserID, conn domain.ConnectionID, conversation int, sink contract.EventSink) error {
	if user == "" {
		return errors.ErrNotAuthenticated
	}
	topic := domain.ConversationTopic(conversation)

	s.groups.Leave(topic, conn)
	return sink.Consume(ctx, event.TopicLeft{Topic: topic})
}

// History returns a page of a conversation's messages, newest first, with a
// cursor to resume from.
func (s *LiveService) History(user domain.UserID, conversation int, cursor *string) ([]domain.Message, *string, error) {
	if user == "" {
		return nil, nil, errors.ErrNotAuthenticated
	}
	if !s.authorizer.MayAccess(user, domain.ConversationTopic(conversation)) {
		return nil, nil, errors.ErrNotAuthorized
	}

	diskMessages, next, err := s.messages.GetMessages(conversation, cursor)
	if err != nil {
		return nil, nil, err
	}
	return lo.Map(diskMessages, func(m repositories.DiskMessage, _ int) domain.Message {
		return m.ToDomain()
	}), next, nil
}

// UnreadNotifications returns the caller's pending notifications, oldest
// first.
func (s *LiveService) UnreadNotifications(user domain.UserID) ([]domain.Notification, error) {
	if user == "" {
		return nil, errors.ErrNotAuthenticated
	}

	diskNotifications, err := s.notifications.UnreadNotifications(string(user))
	if err != nil {
		return nil, err
	}
	return lo.Map(diskNotifications, func(n repositories.DiskNotification, _ int) domain.Notification {
		return n.ToDomain()
	}), nil
}
