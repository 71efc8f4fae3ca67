//go:generate go run go.uber.org/mock/mockgen -source=connection.go -destination=../mocks/mock_connection_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

type IConnectionRepository interface {
	Register(connection domain.Connection) error
	Unregister(connectionID string) error
	ListAll() ([]domain.Connection, error)
}

type ConnectionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConnectionRepository(db *badger.DB, log *slog.Logger) ConnectionRepository {
	return ConnectionRepository{db: db, log: log}
}

const connectionPrefix = "conn:"

// diskConnection is the persisted shape of a live connection.
type diskConnection struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Register upserts the connection under "conn:{connection_id}".
// Registering the same connection twice is a plain overwrite.
func (r ConnectionRepository) Register(connection domain.Connection) error {
	bytes, err := json.Marshal(diskConnection{ID: connection.ID, Username: connection.Username})
	if err != nil {
		return &errors.StorageError{Op: "register", Err: err}
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(connectionPrefix+connection.ID), bytes)
	})
	if err != nil {
		return &errors.StorageError{Op: "register", Err: err}
	}
	return nil
}

// Unregister deletes the connection key. Absence of the key is not an
// error, which makes DISCONNECT idempotent for free.
func (r ConnectionRepository) Unregister(connectionID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(connectionPrefix + connectionID))
	})
	if err != nil {
		return &errors.StorageError{Op: "unregister", Err: err}
	}
	return nil
}

// ListAll returns a snapshot of every live connection. The snapshot can
// race with concurrent register/unregister calls; callers must tolerate
// entries that are gone by the time they use them.
func (r ConnectionRepository) ListAll() ([]domain.Connection, error) {
	var connections []domain.Connection
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(connectionPrefix)
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var dc diskConnection
				if err := json.Unmarshal(value, &dc); err != nil {
					return err
				}
				connections = append(connections, domain.Connection{ID: dc.ID, Username: dc.Username})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &errors.StorageError{Op: "listAll", Err: err}
	}
	return connections, nil
}
