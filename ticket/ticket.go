// Package ticket parses the auth cookie payload into its tagged
// variants and decodes verified credential blobs.
package ticket

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tai/cookiegate/crypt"
	"github.com/tai/cookiegate/internal/util"
)

const (
	tokenTag = "token:"
	cryptTag = "crypt:"
)

var (
	// ErrMalformed covers every payload syntax failure: unknown tag,
	// missing field, bad hex, wrong digest length.
	ErrMalformed = errors.New("malformed cookie payload")
	// ErrNoDelimiter is returned when a decoded credential has no ':'
	// separating username from secret.
	ErrNoDelimiter = errors.New("credential has no delimiter")
)

// Payload is the parsed cookie value. Exactly one concrete type:
// TokenRef (a previously issued token) or Sealed (an encrypted,
// time-limited credential blob).
type Payload interface {
	isPayload()
}

// TokenRef references a token minted by an earlier sealed exchange.
type TokenRef struct {
	Token string
}

// Sealed is a self-contained encrypted credential awaiting verification.
// Ciphertext is the decoded bytes; CiphertextHex is preserved because
// the verification digest is computed over the hex form.
type Sealed struct {
	Digest        [crypt.DigestLen]byte
	Ciphertext    []byte
	CiphertextHex string
}

func (TokenRef) isPayload() {}
func (Sealed) isPayload()   {}

// Parse classifies an already-unescaped cookie value. Parsing is pure:
// the same input always yields the same variant and fields.
func Parse(raw string) (Payload, error) {
	switch {
	case strings.HasPrefix(raw, tokenTag):
		token := raw[len(tokenTag):]
		if token == "" {
			return nil, fmt.Errorf("%w: empty token", ErrMalformed)
		}
		return TokenRef{Token: token}, nil

	case strings.HasPrefix(raw, cryptTag):
		rest := raw[len(cryptTag):]
		digestHex, cipherHex, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("%w: missing ciphertext field", ErrMalformed)
		}

		digestRaw, err := hex.DecodeString(digestHex)
		if err != nil {
			return nil, fmt.Errorf("%w: digest is not hex", ErrMalformed)
		}
		if len(digestRaw) != crypt.DigestLen {
			return nil, fmt.Errorf("%w: digest is %d bytes, want %d", ErrMalformed, len(digestRaw), crypt.DigestLen)
		}

		ciphertext, err := hex.DecodeString(cipherHex)
		if err != nil {
			return nil, fmt.Errorf("%w: ciphertext is not hex", ErrMalformed)
		}
		if len(ciphertext) == 0 {
			return nil, fmt.Errorf("%w: empty ciphertext", ErrMalformed)
		}

		var digest [crypt.DigestLen]byte
		copy(digest[:], digestRaw)
		return Sealed{Digest: digest, Ciphertext: ciphertext, CiphertextHex: cipherHex}, nil

	default:
		return nil, fmt.Errorf("%w: unrecognized tag", ErrMalformed)
	}
}

// Credential is a username/secret pair recovered from a verified blob.
type Credential struct {
	Username string
	Secret   string
}

// DecodeCredential decodes a decrypted buffer: standard base64, then
// split on the first ':'. The secret may itself contain colons; the
// username may not.
func DecodeCredential(plaintext []byte) (Credential, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(plaintext))
	if err != nil {
		return Credential{}, fmt.Errorf("decoding credential: %w", err)
	}
	username, secret, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credential{}, ErrNoDelimiter
	}
	return Credential{Username: username, Secret: secret}, nil
}

// Encode re-encodes the credential as base64(username:secret), the form
// stored alongside an issued token and replayed into the auth header.
func (c Credential) Encode() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Secret))
}

// BasicAuth formats the credential as a Basic Authorization header value.
func (c Credential) BasicAuth() string {
	return "Basic " + c.Encode()
}

// Identity returns the NFKD-normalized username recorded as the
// authenticated request identity.
func (c Credential) Identity() string {
	return util.Normalize(c.Username)
}
