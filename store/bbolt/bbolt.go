// Package bbolt provides a BBolt-backed token store, so issued tokens
// survive a gate restart.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tai/cookiegate/internal/util"
	"github.com/tai/cookiegate/store"
)

var tokensBucket = []byte("tokens")

// Store implements store.Store backed by a BBolt database.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// NewStore returns a token store backed by the given BBolt database.
func NewStore(db *bbolt.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// NewStoreFromFile opens a BBolt database at the given path and returns
// a new token store.
func NewStoreFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewStore(db), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Issue(_ context.Context, credential []byte) (string, error) {
	rec := store.Record{IssuedAt: s.now(), Credential: credential}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	var token string
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(tokensBucket)
		if err != nil {
			return err
		}
		for {
			token, err = util.RandomToken()
			if err != nil {
				return err
			}
			if b.Get([]byte(token)) == nil {
				return b.Put([]byte(token), data)
			}
		}
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return token, nil
}

func (s *Store) Lookup(_ context.Context, token string, timeout time.Duration) (store.Record, store.Status, error) {
	var rec store.Record
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tokensBucket)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(token))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return store.Record{}, store.StatusNotFound, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if !found {
		return store.Record{}, store.StatusNotFound, nil
	}

	if s.now().Sub(rec.IssuedAt) > timeout {
		// Lazy eviction; a failure to evict does not mask the outcome.
		_ = s.db.Update(func(tx *bbolt.Tx) error {
			if b := tx.Bucket(tokensBucket); b != nil {
				return b.Delete([]byte(token))
			}
			return nil
		})
		return store.Record{}, store.StatusExpired, nil
	}
	return rec, store.StatusFound, nil
}

func (s *Store) Invalidate(_ context.Context, token string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(tokensBucket); b != nil {
			return b.Delete([]byte(token))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}
