// Package storetest runs the common conformance suite against any
// token store implementation.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tai/cookiegate/store"
)

// Run exercises the Store contract shared by every backend. Expiry
// behavior needs a controllable clock and is covered per backend.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("IssueAndLookup", func(t *testing.T) {
		token, err := s.Issue(ctx, []byte("Ym9iOnB3"))
		require.NoError(t, err)
		require.Len(t, token, 32)

		rec, status, err := s.Lookup(ctx, token, time.Hour)
		require.NoError(t, err)
		require.Equal(t, store.StatusFound, status)
		require.Equal(t, []byte("Ym9iOnB3"), rec.Credential)
		require.WithinDuration(t, time.Now(), rec.IssuedAt, 5*time.Second)
	})

	t.Run("LookupSoonAfterIssue", func(t *testing.T) {
		token, err := s.Issue(ctx, []byte("blob"))
		require.NoError(t, err)

		_, status, err := s.Lookup(ctx, token, time.Minute)
		require.NoError(t, err)
		require.Equal(t, store.StatusFound, status)
	})

	t.Run("LookupMissing", func(t *testing.T) {
		_, status, err := s.Lookup(ctx, "00000000000000000000000000000000", time.Hour)
		require.NoError(t, err)
		require.Equal(t, store.StatusNotFound, status)
	})

	t.Run("TokensAreUnique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 64; i++ {
			token, err := s.Issue(ctx, []byte("x"))
			require.NoError(t, err)
			require.False(t, seen[token])
			seen[token] = true
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		token, err := s.Issue(ctx, []byte("gone"))
		require.NoError(t, err)

		require.NoError(t, s.Invalidate(ctx, token))
		_, status, err := s.Lookup(ctx, token, time.Hour)
		require.NoError(t, err)
		require.Equal(t, store.StatusNotFound, status)

		// Invalidating again is a no-op, not an error.
		require.NoError(t, s.Invalidate(ctx, token))
	})

	t.Run("ConcurrentIssueLookup", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 25; j++ {
					token, err := s.Issue(ctx, []byte("concurrent"))
					require.NoError(t, err)

					// Read-after-write per token is guaranteed.
					rec, status, err := s.Lookup(ctx, token, time.Hour)
					require.NoError(t, err)
					require.Equal(t, store.StatusFound, status)
					require.Equal(t, []byte("concurrent"), rec.Credential)
				}
			}()
		}
		wg.Wait()
	})
}
