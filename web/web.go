// Package web serves the built-in demonstration logon page. It lets a
// deployment be exercised end to end without a real identity provider;
// production setups point the auth URL at their own logon page, which
// only needs the shared secret and the cookie format.
package web

import (
	"embed"
	"fmt"
	"html"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/tai/cookiegate/crypt"
	"github.com/tai/cookiegate/ticket"
)

//go:embed dist/*
var content embed.FS

const returnURLPlaceholder = "__RETURN_URL__"

// Logon is the demo logon handler. GET renders the form, POST seals
// the submitted credential into the auth cookie and bounces the
// browser back to the protected URL it was redirected from.
type Logon struct {
	cookieName    string
	secret        []byte
	scheme        crypt.Scheme
	cookieOptions string
	page          string
	now           func() time.Time
}

// NewLogon builds a Logon sharing the gate's cookie name, secret and
// digest scheme.
func NewLogon(cookieName string, secret []byte, scheme crypt.Scheme, cookieOptions string) (*Logon, error) {
	fsys, err := fs.Sub(content, "dist")
	if err != nil {
		return nil, fmt.Errorf("loading embedded logon assets: %w", err)
	}
	pageBytes, err := fs.ReadFile(fsys, "logon.html")
	if err != nil {
		return nil, fmt.Errorf("reading embedded logon.html: %w", err)
	}

	return &Logon{
		cookieName:    cookieName,
		secret:        secret,
		scheme:        scheme,
		cookieOptions: cookieOptions,
		page:          string(pageBytes),
		now:           time.Now,
	}, nil
}

func (l *Logon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		l.serveForm(w, r)
	case http.MethodPost:
		l.submit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (l *Logon) serveForm(w http.ResponseWriter, r *http.Request) {
	returnURL := html.EscapeString(r.URL.Query().Get("url"))
	body := strings.Replace(l.page, returnURLPlaceholder, returnURL, 1)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(body))
}

func (l *Logon) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	cred := ticket.Credential{
		Username: r.PostFormValue("user"),
		Secret:   r.PostFormValue("password"),
	}
	if cred.Username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	digestHex, cipherHex, err := crypt.Seal(l.scheme, l.secret, []byte(cred.Encode()), l.now())
	if err != nil {
		http.Error(w, "sealing credential failed", http.StatusInternalServerError)
		return
	}

	cookie := l.cookieName + "=crypt:" + digestHex + ":" + cipherHex
	if l.cookieOptions != "" {
		cookie += "; " + l.cookieOptions
	}
	w.Header().Add("Set-Cookie", cookie)

	target := r.PostFormValue("url")
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
