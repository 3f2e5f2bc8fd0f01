// Package store defines the token store abstraction: the mapping from
// issued opaque tokens to their session records. Backends live in the
// memory, bbolt and redis subpackages.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend I/O failures. The dispatcher treats an
// unavailable store as a denial, never as a crash.
var ErrUnavailable = errors.New("token store unavailable")

// Record is the server-side state behind one issued token. Records are
// created once at issuance and never mutated.
type Record struct {
	IssuedAt   time.Time `json:"issued_at"`
	Credential []byte    `json:"credential"`
}

// Status is the outcome of a Lookup. Expired is distinct from NotFound
// so audit logs can tell a stale client from a forged token, even though
// the dispatcher denies both identically.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusExpired:
		return "expired"
	default:
		return "not_found"
	}
}

// Store issues, resolves and revokes auth tokens. Implementations must
// be safe for concurrent use, and a token returned by Issue must be
// visible to an immediate Lookup from any goroutine.
type Store interface {
	// Issue mints a new unpredictable token, records the credential
	// blob against it with the current time, and returns the token.
	Issue(ctx context.Context, credential []byte) (string, error)
	// Lookup resolves a token. A record older than timeout yields
	// StatusExpired with a zero Record; expired entries are evicted
	// lazily. A non-nil error reports backend failure only.
	Lookup(ctx context.Context, token string, timeout time.Duration) (Record, Status, error)
	// Invalidate removes a token. Removing an absent token is not an
	// error.
	Invalidate(ctx context.Context, token string) error
	// Close releases backend resources.
	Close() error
}
