package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokensNamespace = "revoked-token"

type Cache struct {
	client redis.UniversalClient
}

func NewCache(addr, password string, db int) *Cache {
	return NewCacheFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

func NewCacheFromClient(client redis.UniversalClient) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error {
	return c.client.Set(ctx, namespace+":"+key, value, ttl).Err()
}

func (c *Cache) Exists(ctx context.Context, namespace, key string) (bool, error) {
	n, err := c.client.Exists(ctx, namespace+":"+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeToken remembers a signed-out token id until the token would have
// expired anyway. Already expired tokens are not stored.
func (c *Cache) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.Set(ctx, revokedTokensNamespace, tokenID, 1, ttl)
}

func (c *Cache) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	return c.Exists(ctx, revokedTokensNamespace, tokenID)
}
