package middleware

import (
	"log"
	"net/http"

	"github.com/rahul4469/visionai/context"
	"github.com/rahul4469/visionai/internal/models"
)

type SessionMiddleware struct {
	sessionService *models.SessionService
	cookieName     string
	secureCookies  bool
}

func NewSessionMiddleware(sessionService *models.SessionService, cookieName string, secureCookies bool) *SessionMiddleware {
	return &SessionMiddleware{
		sessionService: sessionService,
		cookieName:     cookieName,
		secureCookies:  secureCookies,
	}
}

// SetSession makes sure every request carries a live session.
// A missing, unknown or expired cookie gets a fresh session on the Input screen.
func (m *SessionMiddleware) SetSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			if _, err := m.sessionService.Lookup(cookie.Value); err == nil {
				r = r.WithContext(context.ContextSetSessionToken(r.Context(), cookie.Value))
				next.ServeHTTP(w, r)
				return
			}
		}

		session, err := m.sessionService.Create()
		if err != nil {
			log.Printf("Failed to create session: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		setCookie(w, m.cookieName, session.Token, m.sessionService.SessionDuration, m.secureCookies)

		r = r.WithContext(context.ContextSetSessionToken(r.Context(), session.Token))
		next.ServeHTTP(w, r)
	})
}

// SessionToken is a helper to get the current session token from any handler.
// Returns "" outside SetSession.
func SessionToken(r *http.Request) string {
	return context.ContextGetSessionToken(r.Context())
}
