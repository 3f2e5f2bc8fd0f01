package crypt

import "errors"

// ErrDecryptSanity is returned when a decrypted byte falls outside
// printable ASCII. The plaintext is always base64 text, so this filters
// garbage (wrong key, truncated blob) before any further parsing.
var ErrDecryptSanity = errors.New("decrypted byte is not printable ASCII")

// Encrypt applies the chained XOR stream transform in place, forward
// order. Each output byte is XORed with the previous ciphertext byte
// (0 for the first) and the key byte at i mod len(key), so every byte
// depends on the whole prefix. The transform provides no integrity on
// its own; that is the verification digest's job.
func Encrypt(buf []byte, key [DigestLen]byte) {
	for i := range buf {
		var prev byte
		if i > 0 {
			prev = buf[i-1]
		}
		buf[i] ^= prev ^ key[i%DigestLen]
	}
}

// Decrypt inverts Encrypt in place. It walks the buffer in reverse so
// that buf[i-1] still holds ciphertext when byte i is recovered.
// Any non-printable recovered byte aborts with ErrDecryptSanity; the
// buffer contents are undefined after a failure.
func Decrypt(buf []byte, key [DigestLen]byte) error {
	for i := len(buf) - 1; i >= 0; i-- {
		var prev byte
		if i > 0 {
			prev = buf[i-1]
		}
		buf[i] ^= prev ^ key[i%DigestLen]
		if buf[i] < 0x20 || buf[i] > 0x7e {
			return ErrDecryptSanity
		}
	}
	return nil
}
