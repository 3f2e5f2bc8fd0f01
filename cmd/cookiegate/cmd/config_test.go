package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tai/cookiegate/crypt"
	"github.com/tai/cookiegate/gate"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("COOKIEGATE_SECRET", "s3cr3t")

	cfg, enclave, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Listen)
	require.Equal(t, "auth", cfg.CookieName)
	require.Equal(t, crypt.SchemeHMAC, cfg.Scheme)
	require.Equal(t, 24*time.Hour, cfg.Timeout)
	require.Equal(t, gate.OverrideUseHeader, cfg.Override)
	require.Equal(t, StoreMemory, cfg.Store)
	require.Empty(t, cfg.Secret, "raw secret must not linger on the config")

	buf, err := enclave.Open()
	require.NoError(t, err)
	defer buf.Destroy()
	require.Equal(t, []byte("s3cr3t"), buf.Bytes())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("COOKIEGATE_SECRET", "k")
	t.Setenv("COOKIEGATE_COOKIE_NAME", "session")
	t.Setenv("COOKIEGATE_SCHEME", "md5")
	t.Setenv("COOKIEGATE_OVERRIDE", "cookie-only")
	t.Setenv("COOKIEGATE_STORE", "redis")
	t.Setenv("COOKIEGATE_TIMEOUT", "1h")

	cfg, _, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "session", cfg.CookieName)
	require.Equal(t, crypt.SchemeMD5, cfg.Scheme)
	require.Equal(t, gate.OverrideCookieOnly, cfg.Override)
	require.Equal(t, StoreRedis, cfg.Store)
	require.Equal(t, time.Hour, cfg.Timeout)
}

func TestLoadConfigSecretFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	t.Setenv("COOKIEGATE_SECRET", "ignored")
	t.Setenv("COOKIEGATE_SECRET_FILE", path)

	_, enclave, err := LoadConfig()
	require.NoError(t, err)

	buf, err := enclave.Open()
	require.NoError(t, err)
	defer buf.Destroy()
	require.Equal(t, []byte("from-file"), buf.Bytes(), "trailing newline is trimmed")
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("COOKIEGATE_SECRET", "")

	_, _, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	t.Setenv("COOKIEGATE_SECRET", "k")
	t.Setenv("COOKIEGATE_STORE", "postgres")

	_, _, err := LoadConfig()
	require.Error(t, err)
}
