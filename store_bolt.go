package session

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("session")

var _ TokenStore = (*BoltStore)(nil)

// BoltStore is a TokenStore backed by a BBolt database, giving the session
// the cross-reload durability the front-end gets from browser storage.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore wraps an already-open BBolt database.
func NewBoltStore(db *bbolt.DB) *BoltStore {
	return &BoltStore{db: db}
}

// NewBoltStoreFromFile opens a BBolt database at the given path and returns
// a store backed by it.
func NewBoltStoreFromFile(path string, options *bbolt.Options) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewBoltStore(db), nil
}

// Close closes the underlying BBolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Save(_ context.Context, token string, user *User) error {
	rawUser, err := encodeUser(user)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(StoreKeyLoggedIn), []byte("true")); err != nil {
			return err
		}
		if err := b.Put([]byte(StoreKeyUser), []byte(rawUser)); err != nil {
			return err
		}
		return b.Put([]byte(StoreKeyToken), []byte(token))
	})
}

func (s *BoltStore) Load(ctx context.Context) (StoredState, error) {
	var loggedIn, rawUser, token string

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		loggedIn = string(b.Get([]byte(StoreKeyLoggedIn)))
		rawUser = string(b.Get([]byte(StoreKeyUser)))
		token = string(b.Get([]byte(StoreKeyToken)))
		return nil
	})
	if err != nil {
		return StoredState{}, err
	}

	state, stale := decodeStoredState(loggedIn, rawUser, token)
	if stale {
		if err := s.Clear(ctx); err != nil {
			return StoredState{}, err
		}
	}

	return state, nil
}

func (s *BoltStore) Clear(context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		if err := b.Delete([]byte(StoreKeyLoggedIn)); err != nil {
			return err
		}
		if err := b.Delete([]byte(StoreKeyUser)); err != nil {
			return err
		}
		return b.Delete([]byte(StoreKeyToken))
	})
}
