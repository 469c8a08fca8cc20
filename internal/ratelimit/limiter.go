// Package ratelimit throttles comment posting per remote address using a
// fixed Redis window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewLimiter creates a Redis-backed limiter allowing max posts per window.
func NewLimiter(redisURL string, max int, window time.Duration) (*Limiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewLimiterWithClient(client, max, window), nil
}

// NewLimiterWithClient creates a limiter from an existing Redis client
func NewLimiterWithClient(client *redis.Client, max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		client: client,
		prefix: "postlimit:",
		max:    max,
		window: window,
	}
}

func (l *Limiter) key(addr string) string {
	return l.prefix + addr
}

// Allow counts one attempt for addr and reports whether it is still inside
// the window's budget. The first attempt arms the window's expiry.
func (l *Limiter) Allow(ctx context.Context, addr string) (bool, error) {
	key := l.key(addr)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("increment %s: %w", key, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("arm expiry on %s: %w", key, err)
		}
	}
	return count <= int64(l.max), nil
}

// Close closes the Redis connection
func (l *Limiter) Close() error {
	return l.client.Close()
}

// Ping checks if Redis is reachable
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
