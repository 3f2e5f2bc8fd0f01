package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tai/cookiegate/crypt"
	"github.com/tai/cookiegate/ticket"
)

func newTestLogon(t *testing.T) *Logon {
	t.Helper()
	l, err := NewLogon("auth", []byte("s3cr3t"), crypt.SchemeHMAC, "path=/; httponly")
	require.NoError(t, err)
	return l
}

func TestLogonFormEmbedsReturnURL(t *testing.T) {
	l := newTestLogon(t)

	req := httptest.NewRequest(http.MethodGet, "/logon?url="+url.QueryEscape("http://app.example/private?x=<1>"), nil)
	rr := httptest.NewRecorder()
	l.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, `value="http://app.example/private?x=&lt;1&gt;"`)
	require.NotContains(t, body, returnURLPlaceholder)
}

func TestLogonSubmitSetsSealedCookie(t *testing.T) {
	l := newTestLogon(t)
	sealedAt := time.Unix(1700000000, 0)
	l.now = func() time.Time { return sealedAt }

	form := url.Values{
		"user":     {"alice"},
		"password": {"hunter2"},
		"url":      {"http://app.example/private"},
	}
	req := httptest.NewRequest(http.MethodPost, "/logon", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	l.ServeHTTP(rr, req)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "http://app.example/private", rr.Header().Get("Location"))

	setCookie := rr.Header().Get("Set-Cookie")
	require.True(t, strings.HasPrefix(setCookie, "auth=crypt:"), setCookie)
	require.True(t, strings.HasSuffix(setCookie, "; path=/; httponly"), setCookie)

	// The sealed value must verify and decrypt back to the credential.
	value := strings.TrimSuffix(strings.TrimPrefix(setCookie, "auth="), "; path=/; httponly")
	payload, err := ticket.Parse(value)
	require.NoError(t, err)
	sealed, ok := payload.(ticket.Sealed)
	require.True(t, ok)

	v, err := crypt.Verify(crypt.SchemeHMAC, []byte("s3cr3t"), sealed.Digest, sealed.CiphertextHex, sealedAt.Add(2*time.Second))
	require.NoError(t, err)

	plain := append([]byte(nil), sealed.Ciphertext...)
	require.NoError(t, crypt.Decrypt(plain, v.Key))

	cred, err := ticket.DecodeCredential(plain)
	require.NoError(t, err)
	require.Equal(t, "alice", cred.Username)
	require.Equal(t, "hunter2", cred.Secret)
}

func TestLogonSubmitRequiresUsername(t *testing.T) {
	l := newTestLogon(t)

	form := url.Values{"password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/logon", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	l.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, rr.Header().Get("Set-Cookie"))
}

func TestLogonRejectsOtherMethods(t *testing.T) {
	l := newTestLogon(t)

	req := httptest.NewRequest(http.MethodPut, "/logon", nil)
	rr := httptest.NewRecorder()
	l.ServeHTTP(rr, req)

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
