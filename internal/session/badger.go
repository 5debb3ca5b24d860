package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/templui/filesmanager/internal/model"
)

// BadgerStore keeps sessions in an embedded BadgerDB. Entries carry a
// native TTL so expired tokens disappear without a sweeper.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerStore opens a store at path. An empty path keeps everything in
// memory, which is what tests and single-process dev setups use.
func NewBadgerStore(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store at %q: %w", path, err)
	}

	slog.Info("session store opened", "driver", "badger", "path", path, "ttl", ttl)
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func (s *BadgerStore) Create(ctx context.Context, owner model.OwnerID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token := newToken()
	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key(token)), []byte(owner)).WithTTL(s.ttl)
		return txn.SetEntry(e)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

func (s *BadgerStore) Resolve(ctx context.Context, token string) (model.OwnerID, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if token == "" {
		return "", false, nil
	}

	var owner []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key(token)))
		if err != nil {
			return err
		}
		owner, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session: %w", err)
	}

	return model.OwnerID(owner), true, nil
}

func (s *BadgerStore) Delete(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key(token)))
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *BadgerStore) Alive(ctx context.Context) bool {
	return !s.db.IsClosed()
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
