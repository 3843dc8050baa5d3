package middleware

import (
	"net/http"
	"time"
)

// setCookie sets the session cookie
func setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure, // HTTPS only in production
		SameSite: http.SameSiteLaxMode,
	})
}
