package httputil

import (
	"context"
	"net/http"

	"coipond/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	userIDKey contextKey = "userID"
	claimsKey contextKey = "claims"
)

// WithUserID adds userID to the request context
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// WithClaims stores the verified token claims and the user ID they carry
func WithClaims(r *http.Request, claims *models.Claims) *http.Request {
	ctx := context.WithValue(r.Context(), claimsKey, claims)
	ctx = context.WithValue(ctx, userIDKey, claims.GetUserID())
	return r.WithContext(ctx)
}

// GetClaims returns the verified claims, or nil for anonymous requests
func GetClaims(r *http.Request) *models.Claims {
	claims, _ := r.Context().Value(claimsKey).(*models.Claims)
	return claims
}

// GetDisplayName returns the public username of the caller, empty if anonymous
func GetDisplayName(r *http.Request) string {
	if claims := GetClaims(r); claims != nil {
		return claims.GetDisplayName()
	}
	return ""
}
