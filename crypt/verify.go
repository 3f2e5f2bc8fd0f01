package crypt

import (
	"crypto/hmac"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

const (
	// WindowQuantum is the granularity of the time windows a blob is
	// sealed against.
	WindowQuantum = 5 * time.Second
	// WindowTolerance bounds how far behind the sealing window may lie.
	// With a 5s quantum this admits at most two candidate windows, so a
	// captured blob stays valid for under ten seconds of clock skew.
	WindowTolerance = 10 * time.Second
)

// ErrDigestMismatch is returned when no candidate window yields a
// matching verification digest. Callers treat it as "not authenticated".
var ErrDigestMismatch = errors.New("no time window matched the digest")

// Verified reports a successful window search.
type Verified struct {
	// Window is the quantized instant the blob was sealed against.
	Window time.Time
	// Key is the cipher key derived at the matched window.
	Key [DigestLen]byte
}

// windowLabel is the textual form of a quantized timestamp mixed into
// every digest: decimal unix seconds, exactly as the logon page writes it.
func windowLabel(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// quantize floors t to the window grid.
func quantize(t time.Time) time.Time {
	return time.Unix(t.Unix()-t.Unix()%int64(WindowQuantum/time.Second), 0)
}

// Verify searches recent time windows for one whose digest over
// (secret, window label, ciphertextHex) matches digest, then derives the
// cipher key at that window. now is the verifier's wall clock; tests
// pass fixed instants. Comparison is constant time.
func Verify(scheme Scheme, secret []byte, digest [DigestLen]byte, ciphertextHex string, now time.Time) (Verified, error) {
	for w := quantize(now); now.Sub(w) < WindowTolerance; w = w.Add(-WindowQuantum) {
		candidate := VerificationDigest(scheme, secret, windowLabel(w), ciphertextHex)
		if !hmac.Equal(candidate[:], digest[:]) {
			continue
		}
		key, err := CipherKey(scheme, secret, windowLabel(w))
		if err != nil {
			return Verified{}, err
		}
		return Verified{Window: w, Key: key}, nil
	}
	return Verified{}, ErrDigestMismatch
}

// Seal produces the digest and ciphertext hex for a plaintext blob at
// the window containing at. This is the logon-page side of the protocol,
// used by the seal command, the demo logon handler, and tests.
func Seal(scheme Scheme, secret, plaintext []byte, at time.Time) (digestHex, ciphertextHex string, err error) {
	w := quantize(at)
	key, err := CipherKey(scheme, secret, windowLabel(w))
	if err != nil {
		return "", "", err
	}

	buf := append([]byte(nil), plaintext...)
	Encrypt(buf, key)
	ciphertextHex = hex.EncodeToString(buf)

	digest := VerificationDigest(scheme, secret, windowLabel(w), ciphertextHex)
	return hex.EncodeToString(digest[:]), ciphertextHex, nil
}
