package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// MarkResetTokenUsed claims a password-reset token atomically via SETNX.
// Returns true on first use, false if the token was already spent. The key
// expires with the token itself, so the used-set stays bounded.
func (r *RedisRepo) MarkResetTokenUsed(ctx context.Context, tokenDigest string, ttl time.Duration) (bool, error) {
	const op = "storage.redis.MarkResetTokenUsed"

	key := fmt.Sprintf("reset:used:%s", tokenDigest)

	first, err := r.client.SetNX(ctx, key, "used", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return first, nil
}

// IsResetTokenUsed reports whether a reset token was already spent, without
// claiming it.
func (r *RedisRepo) IsResetTokenUsed(ctx context.Context, tokenDigest string) (bool, error) {
	const op = "storage.redis.IsResetTokenUsed"

	key := fmt.Sprintf("reset:used:%s", tokenDigest)

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

// SetOAuthState stores the post-login redirect target under a one-time state
// nonce for the duration of the consent round-trip.
func (r *RedisRepo) SetOAuthState(ctx context.Context, state, redirectTo string, ttl time.Duration) error {
	const op = "storage.redis.SetOAuthState"

	key := fmt.Sprintf("oauth:state:%s", state)

	if err := r.client.Set(ctx, key, redirectTo, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConsumeOAuthState fetches and deletes the state entry. A missing state
// (expired, replayed, or forged) returns ok=false.
func (r *RedisRepo) ConsumeOAuthState(ctx context.Context, state string) (string, bool, error) {
	const op = "storage.redis.ConsumeOAuthState"

	key := fmt.Sprintf("oauth:state:%s", state)

	redirectTo, err := r.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return redirectTo, true, nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}
