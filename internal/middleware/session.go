package middleware

import (
	"net/http"

	"coipond/internal/httputil"
	"coipond/internal/session"

	"github.com/google/uuid"
)

const (
	// SessionHeader lets anonymous clients pick their browsing session explicitly
	SessionHeader = "X-Session-ID"
	// SessionCookie carries the browsing session when no header is sent
	SessionCookie = "coipond_session"
)

// Session attaches the caller's session to the request context.
// The key is the token's session_id claim, then the X-Session-ID header, then
// the session cookie. Clients with none get a fresh cookie.
func Session(registry *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := sessionKey(r)
			if key == "" {
				key = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    key,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sess := registry.Get(key)
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}

func sessionKey(r *http.Request) string {
	if claims := httputil.GetClaims(r); claims != nil && claims.SessionID != "" {
		return claims.SessionID
	}
	if key := r.Header.Get(SessionHeader); key != "" {
		return key
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}
