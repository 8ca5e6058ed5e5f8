package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func setupRedisRepo(t *testing.T) (RefreshTokenRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRefreshTokenRepository(client), mr
}

func TestRefreshToken_CreateAndLookup(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	ctx := context.Background()

	err := repo.Create(ctx, "token-abc", 7, time.Hour)
	assert.NoError(t, err)

	userID, err := repo.UserID(ctx, "token-abc")
	assert.NoError(t, err)
	assert.Equal(t, uint(7), userID)
}

func TestRefreshToken_UnknownToken(t *testing.T) {
	repo, _ := setupRedisRepo(t)

	_, err := repo.UserID(context.Background(), "never-issued")

	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestRefreshToken_ExpiresWithTTL(t *testing.T) {
	repo, mr := setupRedisRepo(t)
	ctx := context.Background()

	assert.NoError(t, repo.Create(ctx, "short-lived", 7, time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := repo.UserID(ctx, "short-lived")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestRefreshToken_DeleteIsIdempotent(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	ctx := context.Background()

	assert.NoError(t, repo.Create(ctx, "token-abc", 7, time.Hour))
	assert.NoError(t, repo.Delete(ctx, "token-abc"))

	_, err := repo.UserID(ctx, "token-abc")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	// deleting an already-consumed token is not an error
	assert.NoError(t, repo.Delete(ctx, "token-abc"))
}

func TestRefreshToken_DeleteAllForUser(t *testing.T) {
	repo, _ := setupRedisRepo(t)
	ctx := context.Background()

	assert.NoError(t, repo.Create(ctx, "token-one", 7, time.Hour))
	assert.NoError(t, repo.Create(ctx, "token-two", 7, time.Hour))
	assert.NoError(t, repo.Create(ctx, "other-user", 8, time.Hour))

	assert.NoError(t, repo.DeleteAllForUser(ctx, 7))

	_, err := repo.UserID(ctx, "token-one")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
	_, err = repo.UserID(ctx, "token-two")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	userID, err := repo.UserID(ctx, "other-user")
	assert.NoError(t, err)
	assert.Equal(t, uint(8), userID)
}
