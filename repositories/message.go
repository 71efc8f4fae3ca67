//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Append(username, content string) (domain.Message, error)
	ListRoom(room string) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the persisted shape of a message record.
type diskMessage struct {
	Room      string `json:"room"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Username  string `json:"username"`
	Content   string `json:"content"`
}

// Append assigns a fresh id and timestamp and persists the message.
// The key is formatted as "msg:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func (m MessageRepository) Append(username, content string) (domain.Message, error) {
	now := time.Now()
	message := domain.Message{
		Room:      domain.DefaultRoom,
		ID:        uuid.New(),
		Timestamp: now.Unix(),
		Username:  username,
		Content:   content,
	}
	key := fmt.Sprintf("msg:%s:%019d:%s", message.Room, now.UnixNano(), message.ID)
	bytes, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, &errors.StorageError{Op: "append", Err: err}
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, &errors.StorageError{Op: "append", Err: err}
	}
	return message, nil
}

// ListRoom retrieves every message of a room using a prefix scan.
// Thanks to the padded timestamp in the key, a forward scan yields
// store-native chronological order; no secondary sort is applied here.
func (m MessageRepository) ListRoom(room string) ([]domain.Message, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", room))
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &errors.StorageError{Op: "listRoom", Err: err}
	}

	var messages []domain.Message
	for _, b := range byteMessages {
		var dm diskMessage
		if err = json.Unmarshal(b, &dm); err != nil {
			return nil, &errors.StorageError{Op: "listRoom", Err: err}
		}
		message, err := toMessage(dm)
		if err != nil {
			return nil, &errors.StorageError{Op: "listRoom", Err: err}
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func fromMessage(message domain.Message) diskMessage {
	return diskMessage{
		Room:      message.Room,
		ID:        message.ID.String(),
		Timestamp: message.Timestamp,
		Username:  message.Username,
		Content:   message.Content,
	}
}

func toMessage(dm diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		Room:      dm.Room,
		ID:        parsedID,
		Timestamp: dm.Timestamp,
		Username:  dm.Username,
		Content:   dm.Content,
	}, nil
}
