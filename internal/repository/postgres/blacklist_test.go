package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authsvc/internal/models"
	"github.com/nkiryanov/authsvc/internal/repository"
	"github.com/nkiryanov/authsvc/internal/testutil"
)

func Test_BlacklistRepo(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Blacklist entries reference users, so create one first
	withUser := func(t *testing.T, fn func(r *BlacklistRepo, user models.User)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			userRepo := UserRepo{DB: tx}
			user, err := userRepo.CreateUser(t.Context(), repository.CreateUserParams{
				Email:          "bob@example.com",
				FullName:       "bob",
				HashedPassword: "hash",
			})
			require.NoError(t, err, "user for blacklist test should be created")

			fn(&BlacklistRepo{DB: tx}, user)
		})
	}

	t.Run("add ok", func(t *testing.T) {
		withUser(t, func(r *BlacklistRepo, user models.User) {
			expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)

			entry, err := r.Add(t.Context(), user.ID, "revoked-token", expiresAt)

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, entry.ID)
			assert.Equal(t, user.ID, entry.UserID)
			assert.Equal(t, "revoked-token", entry.Token)
			assert.WithinDuration(t, expiresAt, entry.ExpiresAt, 0)
			assert.WithinDuration(t, time.Now(), entry.CreatedAt, time.Second)
		})
	})

	t.Run("is blacklisted", func(t *testing.T) {
		withUser(t, func(r *BlacklistRepo, user models.User) {
			_, err := r.Add(t.Context(), user.ID, "revoked-token", time.Now().Add(time.Hour))
			require.NoError(t, err)

			revoked, err := r.IsBlacklisted(t.Context(), "revoked-token")
			require.NoError(t, err)
			assert.True(t, revoked, "added token must be blacklisted")

			revoked, err = r.IsBlacklisted(t.Context(), "fresh-token")
			require.NoError(t, err)
			assert.False(t, revoked, "unknown token must not be blacklisted")
		})
	})

	t.Run("add same token twice ok", func(t *testing.T) {
		withUser(t, func(r *BlacklistRepo, user models.User) {
			_, err := r.Add(t.Context(), user.ID, "revoked-token", time.Now().Add(time.Hour))
			require.NoError(t, err)

			_, err = r.Add(t.Context(), user.ID, "revoked-token", time.Now().Add(time.Hour))
			require.NoError(t, err)

			entries, err := r.ListByUser(t.Context(), user.ID)
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})
	})

	t.Run("list by user empty", func(t *testing.T) {
		withUser(t, func(r *BlacklistRepo, user models.User) {
			entries, err := r.ListByUser(t.Context(), user.ID)

			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	})

	t.Run("delete expired", func(t *testing.T) {
		withUser(t, func(r *BlacklistRepo, user models.User) {
			now := time.Now()
			_, err := r.Add(t.Context(), user.ID, "expired-token", now.Add(-time.Minute))
			require.NoError(t, err)
			_, err = r.Add(t.Context(), user.ID, "alive-token", now.Add(time.Hour))
			require.NoError(t, err)

			deleted, err := r.DeleteExpired(t.Context(), now)

			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted, "only expired entry should be deleted")

			revoked, err := r.IsBlacklisted(t.Context(), "alive-token")
			require.NoError(t, err)
			assert.True(t, revoked, "not expired token must remain blacklisted")

			revoked, err = r.IsBlacklisted(t.Context(), "expired-token")
			require.NoError(t, err)
			assert.False(t, revoked, "expired token must be purged")
		})
	})
}
