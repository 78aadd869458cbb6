package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/authsvc/internal/models"
)

type BlacklistRepo struct {
	DB DBTX
}

const blacklistColumns = `id, user_id, token, created_at, expires_at`

const addToBlacklist = `-- name: AddToBlacklist
INSERT INTO blacklist (id, user_id, token, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING ` + blacklistColumns

func (r *BlacklistRepo) Add(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (models.BlacklistEntry, error) {
	rows, _ := r.DB.Query(ctx, addToBlacklist, uuid.New(), userID, token, expiresAt)
	entry, err := pgx.CollectOneRow(rows, rowToBlacklistEntry)
	if err != nil {
		return entry, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

const isBlacklisted = `-- name: IsBlacklisted
SELECT EXISTS (SELECT 1 FROM blacklist WHERE token = $1)
`

func (r *BlacklistRepo) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	rows, _ := r.DB.Query(ctx, isBlacklisted, token)
	exists, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

const listByUser = `-- name: ListBlacklistByUser
SELECT ` + blacklistColumns + ` FROM blacklist
WHERE user_id = $1
ORDER BY created_at DESC, id
`

func (r *BlacklistRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.BlacklistEntry, error) {
	rows, _ := r.DB.Query(ctx, listByUser, userID)
	entries, err := pgx.CollectRows(rows, rowToBlacklistEntry)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

const deleteExpired = `-- name: DeleteExpiredBlacklist
DELETE FROM blacklist
WHERE expires_at < $1
`

func (r *BlacklistRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpired, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

func rowToBlacklistEntry(row pgx.CollectableRow) (models.BlacklistEntry, error) {
	var e models.BlacklistEntry
	err := row.Scan(&e.ID, &e.UserID, &e.Token, &e.CreatedAt, &e.ExpiresAt)
	return e, err
}
