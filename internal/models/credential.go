package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the access/refresh token pair issued by POST /token.
// The pair is always persisted and replaced as a single unit.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Complete reports whether both halves of the pair are present.
func (c *Credential) Complete() bool {
	return c != nil && c.AccessToken != "" && c.RefreshToken != ""
}

// AccessClaims is the JWT payload the backend embeds in access tokens.
// The client reads it without verifying the signature; the server owns that.
type AccessClaims struct {
	UserID int64    `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// ParseAccessClaims decodes the access token payload without verification.
// Returns nil when the token is not a JWT; opaque tokens are acceptable.
func ParseAccessClaims(accessToken string) *AccessClaims {
	claims := &AccessClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return nil
	}
	return claims
}
