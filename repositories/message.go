//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
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

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(conversation int, cursor *string) ([]DiskMessage, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is the storage-layer representation of a chat message.
type DiskMessage struct {
	ID           uuid.UUID
	Conversation int
	Sender       string
	Recipient    string
	Content      string
	Lang         string
	At           time.Time
}

// messageRecord is the JSON shape actually written to disk. Timestamps are
// stored as Unix nanoseconds so a round trip loses no precision.
type messageRecord struct {
	ID           string `json:"id"`
	Conversation int    `json:"conversation"`
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Content      string `json:"content"`
	Lang         string `json:"lang,omitempty"`
	At           int64  `json:"at"`
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("msg:%d:%019d:%s",
		message.Conversation,
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(fromDiskMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetMessages retrieves messages for a conversation using a reverse prefix
// scan, newest first. Thanks to the padded timestamp in the key, messages are
// naturally sorted by time. It stops collecting once the configured
// limitMessages is reached and returns the cursor to resume from.
func (m MessageRepository) GetMessages(conversation int, cursor *string) ([]DiskMessage, *string, error) {
	var rawMessages [][]byte
	var diskMessages []DiskMessage
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%d:", conversation)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible key for this conversation, then
			// walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for _, raw := range rawMessages {
		var record messageRecord
		if err = json.Unmarshal(raw, &record); err != nil {
			return nil, nil, err
		}
		message, err := toDiskMessage(record)
		if err != nil {
			return nil, nil, err
		}
		diskMessages = append(diskMessages, message)
	}
	return diskMessages, &lastKey, nil
}

func fromDiskMessage(message DiskMessage) messageRecord {
	return messageRecord{
		ID:           message.ID.String(),
		Conversation: message.Conversation,
		Sender:       message.Sender,
		Recipient:    message.Recipient,
		Content:      message.Content,
		Lang:         message.Lang,
		At:           message.At.UnixNano(),
	}
}

func toDiskMessage(record messageRecord) (DiskMessage, error) {
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return DiskMessage{}, err
	}
	return DiskMessage{
		ID:           parsedID,
		Conversation: record.Conversation,
		Sender:       record.Sender,
		Recipient:    record.Recipient,
		Content:      record.Content,
		Lang:         record.Lang,
		At:           time.Unix(0, record.At).UTC(),
	}, nil
}

// ToDomain converts a stored message back to its domain form.
func (d DiskMessage) ToDomain() domain.Message {
	return domain.Message{
		ID:           d.ID,
		Conversation: d.Conversation,
		Sender:       domain.UserID(d.Sender),
		Recipient:    domain.UserID(d.Recipient),
		Content:      d.Content,
		Lang:         d.Lang,
		CreatedAt:    d.At,
	}
}
