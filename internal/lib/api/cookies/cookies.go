// Package cookies sets and clears the session cookie. The cookie is the only
// transport for session tokens: HTTP-only and strict same-site so scripts and
// cross-site requests never see it.
package cookies

import (
	"net/http"
	"time"
)

const SessionCookieName = "token"

// SetSession stores the session token. MaxAge is fixed at 12h regardless of
// the token's own expiry; the token engine remains the authority on expiry.
func SetSession(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int((12 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSession expires the session cookie client-side. Tokens are stateless,
// so the copied value stays valid until its natural expiry.
func ClearSession(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Session returns the raw session token from the request, or "".
func Session(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
