package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker lets a user end a session before the token's natural expiry.
// Entries live only as long as the token would have, so the set stays bounded.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const revokePrefix = "parley:revoked:"

// RedisRevoker stores revoked token ids in Redis keyed by jti with a TTL
// equal to the token's remaining lifetime.
type RedisRevoker struct {
	client *redis.Client
}

// NewRedisRevoker constructs a RedisRevoker.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

// Revoke marks a token id as revoked for the given remaining lifetime.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokePrefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether the token id has been revoked.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokePrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ Revoker = (*RedisRevoker)(nil)
