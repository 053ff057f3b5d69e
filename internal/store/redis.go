// ABOUTME: Redis implementation of GrantStore using go-redis with native key TTLs
// ABOUTME: Consumption uses GETDEL so a code or refresh token is returned at most once

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix    = "wishlist:oauth:code:"
	refreshKeyPrefix = "wishlist:oauth:refresh:"
)

// RedisGrantStore implements GrantStore on Redis.
type RedisGrantStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisGrantStore creates a grant store backed by client.
func NewRedisGrantStore(client *redis.Client) *RedisGrantStore {
	return &RedisGrantStore{client: client, now: time.Now}
}

// OpenRedisGrantStore parses a redis:// URL, connects and pings.
func OpenRedisGrantStore(ctx context.Context, url string) (*RedisGrantStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisGrantStore(client), nil
}

// SaveAuthCode stores a code until its expiry.
func (r *RedisGrantStore) SaveAuthCode(ctx context.Context, code *AuthCode) error {
	return r.set(ctx, codeKeyPrefix+code.CodeHash, code, code.ExpiresAt)
}

// ConsumeAuthCode removes and returns a code.
func (r *RedisGrantStore) ConsumeAuthCode(ctx context.Context, codeHash string) (*AuthCode, error) {
	var code AuthCode
	if err := r.getDel(ctx, codeKeyPrefix+codeHash, &code); err != nil {
		return nil, err
	}
	if err := checkExpiry(code.ExpiresAt, r.now()); err != nil {
		return nil, err
	}
	return &code, nil
}

// SaveRefreshToken stores a refresh token until its expiry.
func (r *RedisGrantStore) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	return r.set(ctx, refreshKeyPrefix+token.TokenHash, token, token.ExpiresAt)
}

// ConsumeRefreshToken removes and returns a refresh token.
func (r *RedisGrantStore) ConsumeRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	var token RefreshToken
	if err := r.getDel(ctx, refreshKeyPrefix+tokenHash, &token); err != nil {
		return nil, err
	}
	if err := checkExpiry(token.ExpiresAt, r.now()); err != nil {
		return nil, err
	}
	return &token, nil
}

// Ping checks the Redis connection.
func (r *RedisGrantStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisGrantStore) Close() error {
	return r.client.Close()
}

func (r *RedisGrantStore) set(ctx context.Context, key string, v any, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("redis set %s: %w", key, ErrExpired)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal grant: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set grant: %w", err)
	}
	return nil
}

func (r *RedisGrantStore) getDel(ctx context.Context, key string, dst any) error {
	data, err := r.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("redis getdel grant: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal grant: %w", err)
	}
	return nil
}
