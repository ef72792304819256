package memory

import (
	"context"
	"testing"

	"github.com/phantask/auth-service/models"
	"github.com/phantask/auth-service/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(models.NewUser("alice", "alice@example.com", "hash", models.RoleStudent))

	t.Run("lookup returns a copy", func(t *testing.T) {
		u, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		u.Roles[0] = models.RoleAdmin

		again, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []models.Role{models.RoleStudent}, again.Roles)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		assert.ErrorIs(t, repo.SetEnabled(ctx, "ghost", false), repositories.ErrNotFound)
	})

	t.Run("duplicate create", func(t *testing.T) {
		err := repo.Create(ctx, models.NewUser("alice", "", "hash"))
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
	})

	t.Run("update password through a transaction", func(t *testing.T) {
		err := NewTransactionManager().InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
			return repo.WithTx(tx).UpdatePassword(ctx, "alice", "new-hash", true)
		})
		require.NoError(t, err)

		u, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "new-hash", u.PasswordHash)
		assert.True(t, u.FirstLogin)

		exists, err := repo.ExistsByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("update email", func(t *testing.T) {
		require.NoError(t, repo.UpdateEmail(ctx, "alice", "alice@school.edu"))

		u, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice@school.edu", u.Email)
		assert.ErrorIs(t, repo.UpdateEmail(ctx, "ghost", "x@example.com"), repositories.ErrNotFound)
	})
}

func TestUserRepository_ListByEnabled(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(
		models.NewUser("carol", "", "h", models.RoleStudent),
		models.NewUser("alice", "", "h", models.RoleStudent),
		models.NewUser("bob", "", "h", models.RoleStudent),
	)
	require.NoError(t, repo.SetEnabled(ctx, "bob", false))

	active, err := repo.ListByEnabled(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "alice", active[0].Username)
	assert.Equal(t, "carol", active[1].Username)

	inactive, err := repo.ListByEnabled(ctx, false)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "bob", inactive[0].Username)
	assert.False(t, inactive[0].Enabled)
}
