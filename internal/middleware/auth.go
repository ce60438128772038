package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"coipond/internal/auth"
	"coipond/internal/httputil"
)

// Auth verifies a bearer token when one is present and stores its claims in
// the request context. Requests without a token pass through anonymously so
// listings and detail pages stay public; write routes wrap RequireAuth.
func Auth(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("authentication failed", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithClaims(r, claims))
		})
	}
}

// RequireAuth rejects anonymous requests
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if httputil.GetUserID(r) == "" {
			httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}
