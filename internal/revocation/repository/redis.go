package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"authgate/backend/internal/revocation/domain"
)

const redisKeyPrefix = "authgate:revoked_jti:"

// RedisRepository keeps revocations as hashes that expire once every token they could
// match has expired on its own.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository returns a revocation repository backed by client. ttl should be at
// least the access token lifetime plus clock skew.
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func redisKey(userID, jti string) string { return redisKeyPrefix + userID + ":" + jti }

// Upsert writes the revocation hash and its expiry in one transaction.
func (r *RedisRepository) Upsert(ctx context.Context, rev *domain.RevokedAccessToken) error {
	key := redisKey(rev.UserID, rev.TokenJTI)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"user_id", rev.UserID,
			"reason", rev.Reason,
			"revoked_at", rev.RevokedAt.UTC().Format(time.RFC3339),
		)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	return err
}

// IsRevoked reports whether a revocation hash exists for (userID, jti).
func (r *RedisRepository) IsRevoked(ctx context.Context, userID, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKey(userID, jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteBefore is a no-op; Redis expires revocations by itself.
func (r *RedisRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
