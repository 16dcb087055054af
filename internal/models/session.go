package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated admin session carried by the client
type Session struct {
	ID            string    `json:"-"`
	Username      string    `json:"username"`
	Authenticated bool      `json:"authenticated"`
	IssuedAt      time.Time `json:"-"`
	ExpiresAt     time.Time `json:"-"`
}

// SessionClaims is the signed payload stored in the session cookie.
// ExpiresAtMs mirrors the registered "exp" claim in milliseconds.
type SessionClaims struct {
	Username      string `json:"username"`
	Authenticated bool   `json:"authenticated"`
	ExpiresAtMs   int64  `json:"expiresAt"`
	jwt.RegisteredClaims
}
