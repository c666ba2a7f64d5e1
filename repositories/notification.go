//go:generate go run go.uber.org/mock/mockgen -source=notification.go -destination=../mocks/mock_notification_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"market-live/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type INotificationRepository interface {
	StoreNotification(notification DiskNotification) error
	UnreadNotifications(user string) ([]DiskNotification, error)
}

type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

// DiskNotification is the storage-layer representation of a notification.
// Notifications are written before any realtime delivery attempt, so an
// offline user finds them here on the next pull.
type DiskNotification struct {
	ID        uuid.UUID
	User      string
	Kind      string
	Title     string
	Body      string
	Reference string
	Read      bool
	At        time.Time
}

type notificationRecord struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Reference string `json:"reference,omitempty"`
	Read      bool   `json:"read"`
	At        int64  `json:"at"`
}

// StoreNotification persists a notification under
// "ntf:{user}:{timestamp_padded}:{uuid}", same padding scheme as messages so
// a prefix scan yields chronological order per user.
func (n NotificationRepository) StoreNotification(notification DiskNotification) error {
	key := fmt.Sprintf("ntf:%s:%019d:%s",
		notification.User,
		notification.At.UnixNano(),
		notification.ID,
	)
	bytes, err := json.Marshal(fromDiskNotification(notification))
	if err != nil {
		return err
	}
	return n.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// UnreadNotifications scans the user's notification range and returns the
// unread ones, oldest first.
func (n NotificationRepository) UnreadNotifications(user string) ([]DiskNotification, error) {
	var notifications []DiskNotification
	err := n.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("ntf:%s:", user))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var record notificationRecord
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				if record.Read {
					return nil
				}
				notification, err := toDiskNotification(record)
				if err != nil {
					return err
				}
				notifications = append(notifications, notification)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return notifications, err
}

func fromDiskNotification(notification DiskNotification) notificationRecord {
	return notificationRecord{
		ID:        notification.ID.String(),
		User:      notification.User,
		Kind:      notification.Kind,
		Title:     notification.Title,
		Body:      notification.Body,
		Reference: notification.Reference,
		Read:      notification.Read,
		At:        notification.At.UnixNano(),
	}
}

func toDiskNotification(record notificationRecord) (DiskNotification, error) {
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return DiskNotification{}, err
	}
	return DiskNotification{
		ID:        parsedID,
		User:      record.User,
		Kind:      record.Kind,
		Title:     record.Title,
		Body:      record.Body,
		Reference: record.Reference,
		Read:      record.Read,
		At:        time.Unix(0, record.At).UTC(),
	}, nil
}

// ToDomain converts a stored notification back to its domain form.
func (d DiskNotification) ToDomain() domain.Notification {
	return domain.Notification{
		ID:        d.ID,
		User:      domain.UserID(d.User),
		Kind:      d.Kind,
		Title:     d.Title,
		Body:      d.Body,
		Reference: d.Reference,
		Read:      d.Read,
		CreatedAt: d.At,
	}
}
