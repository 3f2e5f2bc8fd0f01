package gate

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tai/cookiegate/crypt"
	"github.com/tai/cookiegate/internal/util"
	"github.com/tai/cookiegate/store"
	"github.com/tai/cookiegate/ticket"
)

// Gate authenticates requests from the configured cookie and guards a
// backend handler. All request processing is in-memory plus one token
// store access; the gate itself holds no per-request state.
type Gate struct {
	policy  Policy
	store   store.Store
	audit   *auditLogger
	metrics *metrics
	now     func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the structured logger for audit events. If not set,
// a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.audit = newAuditLogger(logger)
	}
}

// WithMetrics registers the gate's Prometheus instruments on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(g *Gate) {
		g.metrics = newMetrics(reg)
	}
}

// New creates a Gate for the given policy and token store.
func New(policy Policy, st store.Store, opts ...Option) (*Gate, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("gate: token store is required")
	}

	g := &Gate{
		policy: policy,
		store:  st,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.audit == nil {
		g.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return g, nil
}

// Middleware wraps next with the cookie authentication protocol.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			switch g.policy.Override {
			case OverrideUseHeader:
				g.metrics.recordPassThrough()
				next.ServeHTTP(w, r)
				return
			case OverridePreferCookie:
				// Header stays; cookie auth may replace it below.
			case OverrideCookieOnly:
				r.Header.Del("Authorization")
			}
		}

		cookie, err := r.Cookie(g.policy.CookieName)
		if err != nil || cookie.Value == "" {
			g.deny(w, r, next, reasonMissingCookie, nil)
			return
		}

		raw, err := url.PathUnescape(cookie.Value)
		if err != nil {
			g.deny(w, r, next, reasonMalformedPayload, err)
			return
		}

		payload, err := ticket.Parse(raw)
		if err != nil {
			g.deny(w, r, next, reasonMalformedPayload, err)
			return
		}

		switch p := payload.(type) {
		case ticket.TokenRef:
			g.handleToken(w, r, next, p)
		case ticket.Sealed:
			g.handleSealed(w, r, next, p)
		default:
			g.deny(w, r, next, reasonMalformedPayload, nil)
		}
	})
}

// handleToken resolves a previously issued token against the store.
func (g *Gate) handleToken(w http.ResponseWriter, r *http.Request, next http.Handler, ref ticket.TokenRef) {
	rec, status, err := g.store.Lookup(r.Context(), ref.Token, g.policy.Timeout)
	if err != nil {
		g.metrics.recordLookup(status.String())
		g.deny(w, r, next, reasonStoreUnavailable, err)
		return
	}
	g.metrics.recordLookup(status.String())

	switch status {
	case store.StatusNotFound:
		g.deny(w, r, next, reasonTokenNotFound, nil)
		return
	case store.StatusExpired:
		g.deny(w, r, next, reasonTokenExpired, nil)
		return
	}

	cred, err := ticket.DecodeCredential(rec.Credential)
	if err != nil {
		g.deny(w, r, next, reasonDecodeFailure, err)
		return
	}

	g.authenticate(w, r, next, cred, AuditAuthenticated)
}

// handleSealed verifies an encrypted credential blob, and on success
// mints a fresh token so later requests take the cheap token path.
func (g *Gate) handleSealed(w http.ResponseWriter, r *http.Request, next http.Handler, sealed ticket.Sealed) {
	v, err := crypt.Verify(g.policy.Scheme, g.policy.Secret, sealed.Digest, sealed.CiphertextHex, g.now())
	if err != nil {
		g.deny(w, r, next, reasonDigestMismatch, err)
		return
	}

	plain := util.CopyBytes(sealed.Ciphertext)
	defer util.WipeBytes(plain)
	if err := crypt.Decrypt(plain, v.Key); err != nil {
		g.deny(w, r, next, reasonDecryptSanity, err)
		return
	}

	cred, err := ticket.DecodeCredential(plain)
	if err != nil {
		g.deny(w, r, next, reasonDecodeFailure, err)
		return
	}

	token, err := g.store.Issue(r.Context(), []byte(cred.Encode()))
	if err != nil {
		g.deny(w, r, next, reasonStoreUnavailable, err)
		return
	}
	g.metrics.recordIssued()

	w.Header().Add("Set-Cookie", g.tokenCookie(token))

	// The current request proceeds with the just-verified credential;
	// no second round trip through the store is needed.
	g.authenticate(w, r, next, cred, AuditTokenIssued)
}

// tokenCookie formats the Set-Cookie value delivering a fresh token,
// with the policy's raw attribute string appended verbatim.
func (g *Gate) tokenCookie(token string) string {
	v := g.policy.CookieName + "=token:" + token
	if g.policy.CookieOptions != "" {
		v += "; " + g.policy.CookieOptions
	}
	return v
}

// authenticate injects the verified credential into the outgoing
// request and hands off to the backend.
func (g *Gate) authenticate(w http.ResponseWriter, r *http.Request, next http.Handler, cred ticket.Credential, event AuditEvent) {
	identity := cred.Identity()

	r.Header.Set("Authorization", cred.BasicAuth())
	r.Header.Set("X-Remote-User", identity)

	g.metrics.recordAuthenticated()
	g.audit.log(event, r, slog.String("username", identity))

	next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
}

// deny handles every authentication failure. With no auth URL the
// request continues unauthenticated; otherwise the client is redirected
// to the logon page with the original URL attached. The reason never
// reaches the client.
func (g *Gate) deny(w http.ResponseWriter, r *http.Request, next http.Handler, reason denyReason, err error) {
	g.audit.denied(r, reason, err)
	g.metrics.recordDenied(reason)

	if g.policy.AuthURL == "" {
		next.ServeHTTP(w, r)
		return
	}

	target := g.policy.AuthURL
	if strings.Contains(target, "?") {
		target += "&url="
	} else {
		target += "?url="
	}
	target += url.QueryEscape(selfURL(r))

	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// selfURL reconstructs the URL of the current request for the logon
// page's return hop.
func selfURL(r *http.Request) string {
	scheme := "http"
	if requestIsSecure(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
