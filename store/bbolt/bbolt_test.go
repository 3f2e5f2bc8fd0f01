package bbolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tai/cookiegate/store"
	"github.com/tai/cookiegate/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStoreFromFile(filepath.Join(t.TempDir(), "tokens.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, newTestStore(t))
}

func TestLookupExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	token, err := s.Issue(ctx, []byte("Ym9iOnB3"))
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, status, err := s.Lookup(ctx, token, 86400*time.Second)
	require.NoError(t, err)
	require.Equal(t, store.StatusFound, status)

	now = now.Add(86400 * time.Second)
	_, status, err = s.Lookup(ctx, token, 86400*time.Second)
	require.NoError(t, err)
	require.Equal(t, store.StatusExpired, status)

	// Lazy eviction removed the row.
	_, status, err = s.Lookup(ctx, token, 86400*time.Second)
	require.NoError(t, err)
	require.Equal(t, store.StatusNotFound, status)
}

func TestRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.db")

	s, err := NewStoreFromFile(path, nil)
	require.NoError(t, err)
	token, err := s.Issue(ctx, []byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStoreFromFile(path, nil)
	require.NoError(t, err)
	defer s.Close()

	rec, status, err := s.Lookup(ctx, token, time.Hour)
	require.NoError(t, err)
	require.Equal(t, store.StatusFound, status)
	require.Equal(t, []byte("persisted"), rec.Credential)
}
