package models

import (
	"time"

	"github.com/google/uuid"
)

const TokenTypeBearer = "bearer"

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issues by TokenManager, AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Decoded token payload
type TokenClaims struct {
	ID        string
	Email     string
	Scope     string
	ExpiresAt time.Time
}

// Revoked refresh token
type BlacklistEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}
