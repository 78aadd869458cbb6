package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/authsvc/internal/models"
)

// Storage gives access to all repositories sharing one db connection (or transaction)
type Storage interface {
	User() UserRepo
	Blacklist() BlacklistRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}

// Stored user representation. Password must be hashed already
type CreateUserParams struct {
	Email          string
	FullName       string
	HashedPassword string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with same full name or email exists has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id, full name or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string, opts ...GetUserOption) (models.User, error)

	// Set user refresh token; nil clears it
	UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error

	// Set or reset user ban flag
	SetBan(ctx context.Context, userID uuid.UUID, ban bool) error
}

type GetUserOpts struct {
	// Lock selected row until transaction ends
	ForUpdate bool
}

type GetUserOption func(*GetUserOpts)

func WithForUpdate() GetUserOption {
	return func(o *GetUserOpts) {
		o.ForUpdate = true
	}
}

// Revoked refresh tokens repository interface
type BlacklistRepo interface {
	// Add token to blacklist. Adding the same token twice is not an error
	Add(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (models.BlacklistEntry, error)

	// Whether the token is blacklisted (expiry not considered)
	IsBlacklisted(ctx context.Context, token string) (bool, error)

	// List user blacklisted tokens, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BlacklistEntry, error)

	// Delete entries expired before the moment, return deleted count
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
