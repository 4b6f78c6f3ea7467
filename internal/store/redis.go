package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// Redis wraps the client shared by the event queue and the rate limiter.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Ping reports connectivity failures as ErrStorageUnavailable.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis: %w: not configured", domain.ErrStorageUnavailable)
	}
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Close releases the client.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
