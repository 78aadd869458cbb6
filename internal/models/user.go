package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Email          string
	FullName       string
	HashedPassword string
	Ban            bool

	// Current refresh token; nil when user logged out or never logged in
	RefreshToken *string
}

// Whether token is the one currently issued to the user
func (u User) HasRefreshToken(token string) bool {
	return u.RefreshToken != nil && *u.RefreshToken == token
}
