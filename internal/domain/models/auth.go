package models

import "github.com/golang-jwt/jwt/v5"

// Claims represents the JWT claims issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	SessionID            string `json:"session_id"`
	UserMetadata         struct {
		DisplayName string `json:"display_name"`
	} `json:"user_metadata"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *Claims) GetUserID() string {
	return c.Subject
}

// GetDisplayName returns the public username, falling back to the email
func (c *Claims) GetDisplayName() string {
	if c.UserMetadata.DisplayName != "" {
		return c.UserMetadata.DisplayName
	}
	return c.Email
}
