package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const sessionKeyPrefix = "session:"

// BadgerSessions stores sessions in BadgerDB so logins survive restarts.
type BadgerSessions struct {
	db *badger.DB
}

var _ SessionStore = (*BadgerSessions)(nil)

func NewBadgerSessions(db *badger.DB) *BadgerSessions {
	return &BadgerSessions{db: db}
}

// OpenBadgerSessions opens a dedicated badger database at dir. An empty dir
// keeps it in memory.
func OpenBadgerSessions(dir string) (*BadgerSessions, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	return NewBadgerSessions(db), nil
}

func (s *BadgerSessions) Close() error {
	return s.db.Close()
}

func (s *BadgerSessions) Get(ctx context.Context, token string) (*Session, error) {
	var session Session

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKeyPrefix + token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func (s *BadgerSessions) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKeyPrefix+session.Token), data)
	})
}

func (s *BadgerSessions) Destroy(ctx context.Context, token string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(sessionKeyPrefix + token))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}
