package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Record_Multiple_Messages_Newest_First(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	conversation := 42
	at := time.Now().UTC()
	diskMessages := []DiskMessage{
		{uuid.New(), conversation, "alice", "bob", "is the bike still available?", "en", at},
		{uuid.New(), conversation, "bob", "alice", "yes, until friday", "en", at.Add(1 * time.Minute)},
		{uuid.New(), conversation, "alice", "bob", "deal", "en", at.Add(2 * time.Minute)},
	}
	for _, dm := range diskMessages {
		req.NoError(repository.StoreMessage(dm))
	}

	// When fetching without a cursor
	fetched, cursor, err := repository.GetMessages(conversation, nil)

	// Then all messages come back newest first
	req.NoError(err)
	req.NotNil(cursor)
	req.Len(fetched, len(diskMessages))
	req.Equal(diskMessages[2], fetched[0])
	req.Equal(diskMessages[1], fetched[1])
	req.Equal(diskMessages[0], fetched[2])
}

func Test_Record_Messages_With_Limit_And_Cursor(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	limit := 2
	repository := NewMessageRepository(db, slog.Default(), &limit)
	conversation := 7
	at := time.Now().UTC()
	diskMessages := []DiskMessage{
		{uuid.New(), conversation, "alice", "bob", "one", "en", at},
		{uuid.New(), conversation, "bob", "alice", "two", "en", at.Add(1 * time.Minute)},
		{uuid.New(), conversation, "alice", "bob", "three", "en", at.Add(2 * time.Minute)},
	}
	for _, dm := range diskMessages {
		req.NoError(repository.StoreMessage(dm))
	}

	// When fetching the first page
	page1, cursor, err := repository.GetMessages(conversation, nil)
	req.NoError(err)
	req.Len(page1, limit)
	req.Equal("three", page1[0].Content)
	req.Equal("two", page1[1].Content)

	// When resuming from the cursor
	page2, _, err := repository.GetMessages(conversation, cursor)

	// Then the remaining message is returned without overlap
	req.NoError(err)
	req.Len(page2, 1)
	req.Equal("one", page2[0].Content)
}

func Test_Messages_Are_Scoped_Per_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), nil)
	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), 1, "alice", "bob", "hello", "en", at}))
	req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), 2, "carol", "dan", "salut", "fr", at}))

	// When fetching conversation 1
	fetched, _, err := repository.GetMessages(1, nil)

	// Then conversation 2 does not leak in
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("hello", fetched[0].Content)
}
