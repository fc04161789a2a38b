package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/testutil"
)

func TestUserRepo_Integration(t *testing.T) {
	pool, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	r := NewUserRepo(pool)
	ctx := context.Background()

	created, err := r.Create(ctx, model.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "hash-1"})
	require.NoError(t, err)

	t.Run("create hides hash and sets role", func(t *testing.T) {
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Empty(t, created.PasswordHash)
		assert.Equal(t, model.RoleUser, created.Role)
	})

	t.Run("duplicate email conflicts regardless of case", func(t *testing.T) {
		_, err := r.Create(ctx, model.User{Name: "Ada 2", Email: "ADA@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrorConflict)
	})

	t.Run("get by email includes hash", func(t *testing.T) {
		u, err := r.GetByEmail(ctx, "Ada@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "hash-1", u.PasswordHash)

		_, err = r.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrorNotFound)
	})

	t.Run("get by id hides hash", func(t *testing.T) {
		u, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", u.Name)
		assert.Empty(t, u.PasswordHash)

		_, err = r.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrorNotFound)
	})

	t.Run("update profile", func(t *testing.T) {
		bio := "hello"
		u, err := r.UpdateProfile(ctx, created.ID, model.ProfilePatch{Bio: &bio})
		require.NoError(t, err)
		assert.Equal(t, "hello", u.Bio)
		assert.Equal(t, "Ada", u.Name)
		assert.Empty(t, u.PasswordHash)
	})

	t.Run("update password", func(t *testing.T) {
		require.NoError(t, r.UpdatePassword(ctx, created.ID, "hash-2"))

		u, err := r.GetCredentials(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "hash-2", u.PasswordHash)

		assert.ErrorIs(t, r.UpdatePassword(ctx, uuid.New(), "x"), ErrorNotFound)
	})
}
