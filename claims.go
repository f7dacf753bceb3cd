package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the decoded identity carried by a token
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims.
// Wire shape: {"id", "username", "exp", "iat"}.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID  string `json:"id,omitempty"`
	Name string `json:"username,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim, falling back to the identity id
func (c *JWTClaims) Subject() string {
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	return c.UID
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Username returns the username at issuance time, it may be stale
func (c *JWTClaims) Username() string {
	return c.Name
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
