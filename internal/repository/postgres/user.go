package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/authsvc/internal/apperrors"
	"github.com/nkiryanov/authsvc/internal/models"
	"github.com/nkiryanov/authsvc/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, email, full_name, password_hash, ban, refresh_token`

const createUser = `-- name: CreateUser
INSERT INTO users (id, email, full_name, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), params.Email, params.FullName, params.HashedPassword)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT ` + userColumns + ` FROM users
WHERE full_name = $1
`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByUsername, username)
	return collectUser(rows)
}

const getUserByEmail = `-- name: GetUserByEmail
SELECT ` + userColumns + ` FROM users
WHERE email = $1
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string, opts ...repository.GetUserOption) (models.User, error) {
	var o repository.GetUserOpts
	for _, opt := range opts {
		opt(&o)
	}

	query := getUserByEmail
	if o.ForUpdate {
		query += "FOR UPDATE\n"
	}

	rows, _ := r.DB.Query(ctx, query, email)
	return collectUser(rows)
}

const updateRefreshToken = `-- name: UpdateRefreshToken
UPDATE users
SET refresh_token = $2
WHERE id = $1
`

func (r *UserRepo) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	tag, err := r.DB.Exec(ctx, updateRefreshToken, userID, token)
	return checkAffected(tag, err)
}

const setBan = `-- name: SetBan
UPDATE users
SET ban = $2
WHERE id = $1
`

func (r *UserRepo) SetBan(ctx context.Context, userID uuid.UUID, ban bool) error {
	tag, err := r.DB.Exec(ctx, setBan, userID, ban)
	return checkAffected(tag, err)
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func checkAffected(tag pgconn.CommandTag, err error) error {
	switch {
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case tag.RowsAffected() == 0:
		return apperrors.ErrUserNotFound
	default:
		return nil
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Email, &u.FullName, &u.HashedPassword, &u.Ban, &u.RefreshToken)
	return u, err
}
