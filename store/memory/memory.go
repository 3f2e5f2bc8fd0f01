// Package memory provides a thread-safe in-process token store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tai/cookiegate/internal/util"
	"github.com/tai/cookiegate/store"
)

// Store is an in-memory token store guarded by a RWMutex. Expired
// entries are evicted lazily at lookup; an optional janitor sweeps
// entries past a retention horizon so an idle store does not grow
// without bound. Tokens are lost on process restart.
type Store struct {
	mu   sync.RWMutex
	data map[string]store.Record

	now func() time.Time

	janitorStop chan struct{}
	janitorOnce sync.Once
}

var _ store.Store = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithJanitor starts a background sweep removing records older than
// retention every interval. Observable lookup behavior is unchanged;
// lazy expiry still applies at read time.
func WithJanitor(interval, retention time.Duration) Option {
	return func(s *Store) {
		if interval <= 0 || retention <= 0 {
			return
		}
		s.janitorStop = make(chan struct{})
		go s.janitor(interval, retention)
	}
}

// WithClock overrides the wall clock. Tests use it to age records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty in-memory token store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]store.Record),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Issue(_ context.Context, credential []byte) (string, error) {
	rec := store.Record{
		IssuedAt:   s.now(),
		Credential: util.CopyBytes(credential),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		token, err := util.RandomToken()
		if err != nil {
			return "", err
		}
		if _, exists := s.data[token]; exists {
			continue
		}
		s.data[token] = rec
		return token, nil
	}
}

func (s *Store) Lookup(_ context.Context, token string, timeout time.Duration) (store.Record, store.Status, error) {
	s.mu.RLock()
	rec, ok := s.data[token]
	s.mu.RUnlock()
	if !ok {
		return store.Record{}, store.StatusNotFound, nil
	}
	if s.now().Sub(rec.IssuedAt) > timeout {
		s.mu.Lock()
		delete(s.data, token)
		s.mu.Unlock()
		return store.Record{}, store.StatusExpired, nil
	}
	return rec, store.StatusFound, nil
}

func (s *Store) Invalidate(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
	return nil
}

// Close stops the janitor, if one was started.
func (s *Store) Close() error {
	if s.janitorStop != nil {
		s.janitorOnce.Do(func() { close(s.janitorStop) })
	}
	return nil
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *Store) janitor(interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.janitorStop:
			return
		case <-ticker.C:
			horizon := s.now().Add(-retention)
			s.mu.Lock()
			for token, rec := range s.data {
				if rec.IssuedAt.Before(horizon) {
					delete(s.data, token)
				}
			}
			s.mu.Unlock()
		}
	}
}
