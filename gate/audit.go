package gate

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// AuditEvent identifies the security-relevant outcome being logged.
type AuditEvent string

const (
	AuditAuthenticated AuditEvent = "authenticated"
	AuditTokenIssued   AuditEvent = "token_issued"
	AuditDenied        AuditEvent = "denied"
)

// denyReason is the internal failure taxonomy. Every reason collapses
// into the same external denied outcome; the distinction exists only
// for audit logging and metrics.
type denyReason string

const (
	reasonMissingCookie    denyReason = "missing_cookie"
	reasonMalformedPayload denyReason = "malformed_payload"
	reasonDigestMismatch   denyReason = "digest_mismatch"
	reasonDecryptSanity    denyReason = "decrypt_sanity_failure"
	reasonDecodeFailure    denyReason = "decode_failure"
	reasonTokenNotFound    denyReason = "token_not_found"
	reasonTokenExpired     denyReason = "token_expired"
	reasonStoreUnavailable denyReason = "store_unavailable"
)

// auditLogger wraps slog.Logger for structured audit logging.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{logger: logger.With("component", "audit")}
}

// requestID returns the inbound correlation id, minting one when the
// upstream proxy did not supply it.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", requestID(r)),
	}
	base = append(base, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", base...)
}

func (al *auditLogger) denied(r *http.Request, reason denyReason, err error) {
	attrs := []slog.Attr{slog.String("reason", string(reason))}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	al.log(AuditDenied, r, attrs...)
}
