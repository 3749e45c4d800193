package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// PinRegistry stores pin -> game id mappings in Redis so several preview
// instances sharing one Redis never hand out the same pin. Keys expire after
// ttl to reclaim pins of games that were never ended.
type PinRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPinRegistry(client *redis.Client, ttl time.Duration) *PinRegistry {
	return &PinRegistry{client: client, ttl: ttl}
}

func (r *PinRegistry) Reserve(ctx context.Context, pin, gameID string) (bool, error) {
	return r.client.SetNX(ctx, r.key(pin), gameID, r.ttl).Result()
}

func (r *PinRegistry) Lookup(ctx context.Context, pin string) (string, bool, error) {
	gameID, err := r.client.Get(ctx, r.key(pin)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return gameID, true, nil
}

func (r *PinRegistry) Release(ctx context.Context, pin string) error {
	return r.client.Del(ctx, r.key(pin)).Err()
}

func (r *PinRegistry) key(pin string) string {
	return "quizblitz:pin:" + pin
}
