// Package redis provides a Redis-backed token store, letting several
// gate replicas share one token namespace.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tai/cookiegate/internal/util"
	"github.com/tai/cookiegate/store"
)

// DefaultRetention is the Redis key TTL when none is configured. It is
// an upper bound on record lifetime, not the auth timeout: the logical
// timeout is still enforced from IssuedAt at lookup.
const DefaultRetention = 24 * time.Hour

// Store implements store.Store on a Redis client.
type Store struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

// NewStore creates a Redis-backed token store. prefix namespaces the
// keys; retention caps how long a record may live regardless of the
// lookup timeout (<= 0 selects DefaultRetention).
func NewStore(client redis.UniversalClient, prefix string, retention time.Duration) *Store {
	if prefix == "" {
		prefix = "cg"
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{client: client, prefix: prefix, retention: retention, now: time.Now}
}

func (s *Store) key(token string) string {
	return s.prefix + ":" + token
}

func (s *Store) Issue(ctx context.Context, credential []byte) (string, error) {
	rec := store.Record{IssuedAt: s.now(), Credential: credential}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	for {
		token, err := util.RandomToken()
		if err != nil {
			return "", err
		}
		// NX both guards against the negligible collision case and
		// keeps Issue a single round trip.
		ok, err := s.client.SetNX(ctx, s.key(token), data, s.retention).Result()
		if err != nil {
			return "", fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		if ok {
			return token, nil
		}
	}
}

func (s *Store) Lookup(ctx context.Context, token string, timeout time.Duration) (store.Record, store.Status, error) {
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.Record{}, store.StatusNotFound, nil
		}
		return store.Record{}, store.StatusNotFound, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return store.Record{}, store.StatusNotFound, fmt.Errorf("%w: corrupt record: %v", store.ErrUnavailable, err)
	}

	if s.now().Sub(rec.IssuedAt) > timeout {
		_ = s.client.Del(ctx, s.key(token)).Err()
		return store.Record{}, store.StatusExpired, nil
	}
	return rec, store.StatusFound, nil
}

func (s *Store) Invalidate(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *Store) Close() error {
	return nil
}
