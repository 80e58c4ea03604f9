package session

import (
	"net/http"
	"time"
)

// CookieName is the session cookie issued to browsers. The cookie carries
// the session id itself, not the provider credential.
const CookieName = "session_token"

// SetCookie issues the session cookie. MaxAge tracks the inactivity window
// so the browser drops the cookie in step with server-side expiry.
func SetCookie(w http.ResponseWriter, sessionID string, window time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(window.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
