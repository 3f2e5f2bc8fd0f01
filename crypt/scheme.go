// Package crypt implements the cookie credential protection protocol:
// a secret-keyed verification digest bound to a quantized time window,
// a chained XOR stream transform for the credential blob, and the
// window-search verifier that authenticates incoming blobs.
package crypt

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/tai/cookiegate/internal/util"
)

// DigestLen is the byte length of a verification digest in every scheme.
const DigestLen = 16

// Scheme selects the digest and key-derivation construction.
//
// SchemeMD5 is wire compatible with legacy logon pages: digests are
// plain keyed MD5, which is not a real MAC and is kept only for
// migration. SchemeHMAC is the default: HMAC-SHA256 for verification
// and HKDF-SHA256 for the cipher key.
type Scheme int

const (
	SchemeHMAC Scheme = iota
	SchemeMD5
)

// Domain-separation labels for the hardened scheme. The verification
// digest and the cipher key must never collapse into the same derivation.
var (
	macInfo = []byte("cookiegate:mac:v1")
	keyInfo = []byte("cookiegate:key:v1")
)

func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(s) {
	case "hmac", "hmac-sha256", "":
		return SchemeHMAC, nil
	case "md5", "legacy":
		return SchemeMD5, nil
	default:
		return 0, fmt.Errorf("unknown digest scheme %q (valid: hmac-sha256, md5)", s)
	}
}

func (s Scheme) String() string {
	switch s {
	case SchemeMD5:
		return "md5"
	default:
		return "hmac-sha256"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so a Scheme can be
// parsed straight from configuration.
func (s *Scheme) UnmarshalText(text []byte) error {
	parsed, err := ParseScheme(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// VerificationDigest computes the 16-byte digest authenticating a sealed
// blob for one time window. The digest covers the hex encoding of the
// ciphertext, not the raw bytes; that is the wire contract.
//
// SchemeMD5: MD5(secret || windowLabel || ciphertextHex).
// SchemeHMAC: HMAC-SHA256(secret, macInfo || windowLabel || ":" || ciphertextHex),
// truncated to 16 bytes.
func VerificationDigest(scheme Scheme, secret []byte, windowLabel, ciphertextHex string) [DigestLen]byte {
	var out [DigestLen]byte
	switch scheme {
	case SchemeMD5:
		h := md5.New()
		h.Write(secret)
		h.Write([]byte(windowLabel))
		h.Write([]byte(ciphertextHex))
		copy(out[:], h.Sum(nil))
	default:
		m := hmac.New(sha256.New, secret)
		m.Write(macInfo)
		m.Write([]byte(windowLabel))
		m.Write([]byte(":"))
		m.Write([]byte(ciphertextHex))
		copy(out[:], m.Sum(nil)[:DigestLen])
	}
	return out
}

// CipherKey derives the 16-byte stream cipher key for one time window.
// The argument order in the MD5 scheme (windowLabel first, secret second)
// is deliberately the reverse of VerificationDigest: the swap separates
// the MAC and KDF domains, and deployed logon pages depend on it.
func CipherKey(scheme Scheme, secret []byte, windowLabel string) ([DigestLen]byte, error) {
	var out [DigestLen]byte
	switch scheme {
	case SchemeMD5:
		h := md5.New()
		h.Write([]byte(windowLabel))
		h.Write(secret)
		copy(out[:], h.Sum(nil))
	default:
		k, err := util.HKDF(secret, []byte(windowLabel), keyInfo, DigestLen)
		if err != nil {
			return out, fmt.Errorf("deriving cipher key: %w", err)
		}
		copy(out[:], k)
	}
	return out, nil
}
