// Package gate implements the cookie authentication gate: an HTTP
// middleware that turns a sealed credential cookie into a short-lived
// server-held token and injects a Basic Authorization header for the
// protected backend.
package gate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tai/cookiegate/crypt"
)

// OverrideMode decides what the gate does when a request already
// carries an Authorization header.
type OverrideMode int

const (
	// OverrideUseHeader passes an existing header through untouched and
	// skips cookie processing entirely.
	OverrideUseHeader OverrideMode = iota
	// OverridePreferCookie processes the cookie; the existing header
	// survives only if cookie auth ends in an unauthenticated pass-through.
	OverridePreferCookie
	// OverrideCookieOnly strips the incoming header before processing;
	// only cookie-derived credentials ever reach the backend.
	OverrideCookieOnly
)

func ParseOverrideMode(s string) (OverrideMode, error) {
	switch strings.ToLower(s) {
	case "use-header", "":
		return OverrideUseHeader, nil
	case "prefer-cookie":
		return OverridePreferCookie, nil
	case "cookie-only":
		return OverrideCookieOnly, nil
	default:
		return 0, fmt.Errorf("unknown override mode %q (valid: use-header, prefer-cookie, cookie-only)", s)
	}
}

func (m OverrideMode) String() string {
	switch m {
	case OverridePreferCookie:
		return "prefer-cookie"
	case OverrideCookieOnly:
		return "cookie-only"
	default:
		return "use-header"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for configuration
// parsing.
func (m *OverrideMode) UnmarshalText(text []byte) error {
	parsed, err := ParseOverrideMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Policy is the immutable per-request authentication policy. It is
// resolved by an external configuration layer; the gate only reads it.
type Policy struct {
	// CookieName is the cookie entry carrying the auth payload.
	CookieName string
	// Secret is the key shared with the logon page.
	Secret []byte
	// Scheme selects the digest construction for sealed blobs.
	Scheme crypt.Scheme
	// Timeout is the life of an issued token.
	Timeout time.Duration
	// AuthURL is where denied requests are redirected. Empty means a
	// denied request continues to the backend unauthenticated.
	AuthURL string
	// CookieOptions is the raw attribute string appended to the issued
	// token cookie, e.g. "path=/; httponly".
	CookieOptions string
	// Override decides the fate of pre-existing Authorization headers.
	Override OverrideMode
}

// DefaultTimeout is the token life applied when configuration supplies none.
const DefaultTimeout = 86400 * time.Second

func (p Policy) validate() error {
	if p.CookieName == "" {
		return errors.New("policy: cookie name is required")
	}
	if len(p.Secret) == 0 {
		return errors.New("policy: shared secret is required")
	}
	if p.Timeout <= 0 {
		return errors.New("policy: timeout must be positive")
	}
	return nil
}
