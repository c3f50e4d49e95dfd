package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	u, err := repo.Create(ctx, &models.User{Email: "t@example.com", Username: "tester", PasswordHash: "hash"})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := repo.FindByEmail(ctx, "t@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, byID.PasswordHash)
	assert.Equal(t, "tester", byID.Username)

	ok, err := repo.ExistsByEmail(ctx, "t@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.ExistsByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_Uniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{Email: "t@example.com", Username: "tester"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{Email: "t@example.com", Username: "other"})
	assert.ErrorIs(t, err, common.ErrEmailTaken)

	_, err = repo.Create(ctx, &models.User{Email: "o@example.com", Username: "tester"})
	assert.ErrorIs(t, err, common.ErrUsernameTaken)
}

func TestMemoryRepository_ConcurrentDuplicateEmail(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	const n = 32
	var created, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, &models.User{Email: "race@example.com", Username: fmt.Sprintf("user%d", i)})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, common.ErrorConflict):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
}

func TestMemoryRepository_ListNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, &models.User{Email: fmt.Sprintf("u%d@example.com", i), Username: fmt.Sprintf("user%d", i), PasswordHash: "h"})
		require.NoError(t, err)
	}

	page, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "user4", page.Users[0].Username)
	assert.Equal(t, "user3", page.Users[1].Username)
	assert.Empty(t, page.Users[0].PasswordHash)

	page, err = repo.List(ctx, 2, 4)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "user0", page.Users[0].Username)

	page, err = repo.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.EqualValues(t, 5, page.Total)

	page, err = repo.List(ctx, 2, -3)
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "user4", page.Users[0].Username)
}

func TestMemoryRepository_UpdateAndDelete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a, err := repo.Create(ctx, &models.User{Email: "a@example.com", Username: "aaa", PasswordHash: "h1"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.User{Email: "b@example.com", Username: "bbb"})
	require.NoError(t, err)

	email := "b@example.com"
	_, err = repo.Update(ctx, a.ID, models.UserUpdate{Email: &email})
	assert.ErrorIs(t, err, common.ErrEmailTaken)

	same := "aaa"
	hash := "h2"
	got, err := repo.Update(ctx, a.ID, models.UserUpdate{Username: &same, PasswordHash: &hash})
	require.NoError(t, err)
	assert.Equal(t, "aaa", got.Username)

	stored, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h2", stored.PasswordHash)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), common.ErrorNotFound)

	_, err = repo.Update(ctx, a.ID, models.UserUpdate{Username: &same})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	page, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}
