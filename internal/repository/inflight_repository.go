package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

const inFlightPrefix = "agent-portal:inflight:"

type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// InFlightRepository keeps short-lived Redis locks marking application operations that are
// still outstanding, so replicas refuse concurrent mutations of one application.
type InFlightRepository struct {
	client lockClient
	token  func() string
}

// NewInFlightRepository constructs the repository.
func NewInFlightRepository(client *redis.Client) *InFlightRepository {
	return newInFlightRepository(client)
}

func newInFlightRepository(client lockClient) *InFlightRepository {
	return &InFlightRepository{client: client, token: uuid.NewString}
}

// Acquire sets key if absent. ok is false when another holder owns it. The returned
// token must be passed to Release.
func (r *InFlightRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := r.token()
	ok, err := r.client.SetNX(ctx, inFlightPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return token, ok, nil
}

// Release deletes key only while token still owns it, so an expired lock taken over by
// another request is left alone.
func (r *InFlightRepository) Release(ctx context.Context, key, token string) error {
	err := r.client.Eval(ctx, releaseScript, []string{inFlightPrefix + key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}
