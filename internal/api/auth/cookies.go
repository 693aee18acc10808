package auth

import (
	"net/http"
	"strings"
	"time"
)

const DefaultCookieName = "access_token"

// SessionCookie writes and reads the HTTP-only cookie that carries the
// session token.
type SessionCookie struct {
	Name   string
	Secure bool
}

func (c SessionCookie) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func (c SessionCookie) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear overwrites the cookie with an already expired one.
func (c SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the token from the cookie, falling back to an
// "Authorization: Bearer" header.
func (c SessionCookie) Read(r *http.Request) string {
	if ck, err := r.Cookie(c.name()); err == nil && ck.Value != "" {
		return ck.Value
	}
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
