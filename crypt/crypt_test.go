package crypt

import (
	"encoding/base64"
	"encoding/hex"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Wire vectors computed with an independent implementation of the
// protocol (window 1700000000, secret "s3cr3t",
// plaintext base64("alice:hunter2")).
const (
	goldenSecret    = "s3cr3t"
	goldenPlain     = "YWxpY2U6aHVudGVyMg=="
	goldenWindow    = int64(1700000000)
	goldenMD5Key    = "5e5e529b6ae68fdfe5db4c19aeb3162d"
	goldenMD5Cipher = "070e24cffc28f21b9f0c167ab0440450437a15b3"
	goldenMD5Digest = "9f050c8d10969e8e45060f2a18f72936"

	goldenHMACKey    = "ea192933fa6bfbb3e713a4b9090c5eec"
	goldenHMACCipher = "b3fdacef4c15bb3eb8e311ddb0fbf366c1bfaba5"
	goldenHMACDigest = "82d501f7383c2455cbd8cdfd9bf189f8"
)

func mustDigest(t *testing.T, hexStr string) [DigestLen]byte {
	t.Helper()
	raw, err := hex.DecodeString(hexStr)
	require.NoError(t, err)
	require.Len(t, raw, DigestLen)
	var d [DigestLen]byte
	copy(d[:], raw)
	return d
}

func TestCipherRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		raw := make([]byte, 1+rng.Intn(64))
		rng.Read(raw)
		// Plaintext on the wire is always base64 text, which also keeps
		// it inside the printable range Decrypt enforces.
		plain := []byte(base64.StdEncoding.EncodeToString(raw))

		var key [DigestLen]byte
		rng.Read(key[:])

		buf := append([]byte(nil), plain...)
		Encrypt(buf, key)
		require.NoError(t, Decrypt(buf, key))
		require.Equal(t, plain, buf)
	}
}

func TestDecryptRejectsNonPrintable(t *testing.T) {
	// A sealed buffer whose plaintext contains 0x01 must be rejected by
	// the sanity filter no matter what the digest said.
	plain := []byte("YWx\x01pY2U6")
	var key [DigestLen]byte
	copy(key[:], "0123456789abcdef")

	buf := append([]byte(nil), plain...)
	Encrypt(buf, key)
	require.ErrorIs(t, Decrypt(buf, key), ErrDecryptSanity)
}

func TestSealGoldenMD5(t *testing.T) {
	at := time.Unix(goldenWindow, 0)

	key, err := CipherKey(SchemeMD5, []byte(goldenSecret), "1700000000")
	require.NoError(t, err)
	require.Equal(t, goldenMD5Key, hex.EncodeToString(key[:]))

	digestHex, cipherHex, err := Seal(SchemeMD5, []byte(goldenSecret), []byte(goldenPlain), at)
	require.NoError(t, err)
	require.Equal(t, goldenMD5Cipher, cipherHex)
	require.Equal(t, goldenMD5Digest, digestHex)
}

func TestSealGoldenHMAC(t *testing.T) {
	at := time.Unix(goldenWindow, 0)

	key, err := CipherKey(SchemeHMAC, []byte(goldenSecret), "1700000000")
	require.NoError(t, err)
	require.Equal(t, goldenHMACKey, hex.EncodeToString(key[:]))

	digestHex, cipherHex, err := Seal(SchemeHMAC, []byte(goldenSecret), []byte(goldenPlain), at)
	require.NoError(t, err)
	require.Equal(t, goldenHMACCipher, cipherHex)
	require.Equal(t, goldenHMACDigest, digestHex)
}

func TestVerifyWindowTolerance(t *testing.T) {
	for _, scheme := range []Scheme{SchemeMD5, SchemeHMAC} {
		t.Run(scheme.String(), func(t *testing.T) {
			sealedAt := time.Unix(goldenWindow, 0)
			digestHex, cipherHex, err := Seal(scheme, []byte(goldenSecret), []byte(goldenPlain), sealedAt)
			require.NoError(t, err)
			digest := mustDigest(t, digestHex)

			sealKey, err := CipherKey(scheme, []byte(goldenSecret), "1700000000")
			require.NoError(t, err)

			for off := 0; off < 10; off++ {
				now := sealedAt.Add(time.Duration(off) * time.Second)
				v, err := Verify(scheme, []byte(goldenSecret), digest, cipherHex, now)
				require.NoErrorf(t, err, "offset %ds", off)
				require.Equal(t, sealedAt, v.Window)
				// The re-derived key must equal the one used to seal.
				require.Equal(t, sealKey, v.Key)
			}

			for _, off := range []int{10, 11, 15, 3600} {
				now := sealedAt.Add(time.Duration(off) * time.Second)
				_, err := Verify(scheme, []byte(goldenSecret), digest, cipherHex, now)
				require.ErrorIsf(t, err, ErrDigestMismatch, "offset %ds", off)
			}
		})
	}
}

func TestVerifyUnquantizedSealTime(t *testing.T) {
	// Sealing between window boundaries still binds to the floor window.
	sealedAt := time.Unix(goldenWindow+3, 0)
	digestHex, cipherHex, err := Seal(SchemeHMAC, []byte(goldenSecret), []byte(goldenPlain), sealedAt)
	require.NoError(t, err)

	v, err := Verify(SchemeHMAC, []byte(goldenSecret), mustDigest(t, digestHex), cipherHex, sealedAt.Add(4*time.Second))
	require.NoError(t, err)
	require.Equal(t, time.Unix(goldenWindow, 0), v.Window)
}

func TestMACAndKDFDerivationsDiffer(t *testing.T) {
	// The verification digest and the cipher key are distinct labeled
	// derivations; the same inputs must never yield the same bytes.
	for _, scheme := range []Scheme{SchemeMD5, SchemeHMAC} {
		t.Run(scheme.String(), func(t *testing.T) {
			digest := VerificationDigest(scheme, []byte(goldenSecret), "1700000000", "")
			key, err := CipherKey(scheme, []byte(goldenSecret), "1700000000")
			require.NoError(t, err)
			require.NotEqual(t, digest, key)
		})
	}
}

func TestSingleByteTamperNeverVerifies(t *testing.T) {
	const hexAlphabet = "0123456789abcdef"

	sealedAt := time.Unix(goldenWindow, 0)
	now := sealedAt.Add(2 * time.Second)
	digestHex, cipherHex, err := Seal(SchemeHMAC, []byte(goldenSecret), []byte(goldenPlain), sealedAt)
	require.NoError(t, err)

	// Control: untampered blob verifies.
	_, err = Verify(SchemeHMAC, []byte(goldenSecret), mustDigest(t, digestHex), cipherHex, now)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	mutate := func(s string) string {
		b := []byte(s)
		pos := rng.Intn(len(b))
		for {
			c := hexAlphabet[rng.Intn(len(hexAlphabet))]
			if c != b[pos] {
				b[pos] = c
				break
			}
		}
		return string(b)
	}

	for i := 0; i < 10000; i++ {
		d, c := digestHex, cipherHex
		if rng.Intn(2) == 0 {
			d = mutate(d)
		} else {
			c = mutate(c)
		}
		_, err := Verify(SchemeHMAC, []byte(goldenSecret), mustDigest(t, d), c, now)
		require.ErrorIs(t, err, ErrDigestMismatch, "mutation %d produced a false positive", i)
	}
}

func TestParseScheme(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Scheme
	}{
		{"hmac", SchemeHMAC},
		{"hmac-sha256", SchemeHMAC},
		{"", SchemeHMAC},
		{"md5", SchemeMD5},
		{"legacy", SchemeMD5},
		{"MD5", SchemeMD5},
	} {
		got, err := ParseScheme(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := ParseScheme("sha1")
	require.Error(t, err)
}
