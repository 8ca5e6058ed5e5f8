package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRefreshTokenNotFound is returned when a refresh token is unknown,
// expired or already revoked. Redis expiry is the TTL enforcement: a token
// that outlives its TTL simply disappears.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository stores refresh tokens keyed by their opaque token
// string, mapped to the owning user id.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token string, userID uint, ttl time.Duration) error
	UserID(ctx context.Context, token string) (uint, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID uint) error
}

// refreshTokenRepository is the Redis implementation of RefreshTokenRepository.
type refreshTokenRepository struct {
	client *redis.Client
}

func NewRefreshTokenRepository(client *redis.Client) RefreshTokenRepository {
	return &refreshTokenRepository{client: client}
}

func refreshTokenKey(token string) string {
	return fmt.Sprintf("refresh_token:%s", token)
}

func userTokensKey(userID uint) string {
	return fmt.Sprintf("refresh_tokens:user:%d", userID)
}

func (r *refreshTokenRepository) Create(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	key := refreshTokenKey(token)
	if err := r.client.Set(ctx, key, strconv.FormatUint(uint64(userID), 10), ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	// track the user's tokens so logout-everywhere can revoke them
	if err := r.client.SAdd(ctx, userTokensKey(userID), token).Err(); err != nil {
		return fmt.Errorf("index refresh token: %w", err)
	}
	if err := r.client.Expire(ctx, userTokensKey(userID), ttl).Err(); err != nil {
		return fmt.Errorf("expire refresh token index: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) UserID(ctx context.Context, token string) (uint, error) {
	val, err := r.client.Get(ctx, refreshTokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrRefreshTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("look up refresh token: %w", err)
	}
	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt refresh token entry: %w", err)
	}
	return uint(userID), nil
}

func (r *refreshTokenRepository) Delete(ctx context.Context, token string) error {
	userID, err := r.UserID(ctx, token)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}
	if err := r.client.Del(ctx, refreshTokenKey(token)).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return r.client.SRem(ctx, userTokensKey(userID), token).Err()
}

func (r *refreshTokenRepository) DeleteAllForUser(ctx context.Context, userID uint) error {
	tokens, err := r.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list user refresh tokens: %w", err)
	}
	for _, token := range tokens {
		if err := r.client.Del(ctx, refreshTokenKey(token)).Err(); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}
	return r.client.Del(ctx, userTokensKey(userID)).Err()
}
