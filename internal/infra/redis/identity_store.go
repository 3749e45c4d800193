package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// IdentityStore keeps the client id of a profile in Redis, for shared or
// scripted setups where the local disk is not persistent.
type IdentityStore struct {
	client  *redis.Client
	profile string
}

func NewIdentityStore(client *redis.Client, profile string) *IdentityStore {
	return &IdentityStore{client: client, profile: profile}
}

func (s *IdentityStore) Load(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

// Save stores the id without expiry; client ids are never rotated.
func (s *IdentityStore) Save(ctx context.Context, clientID string) error {
	return s.client.Set(ctx, s.key(), clientID, 0).Err()
}

func (s *IdentityStore) key() string {
	return "quizblitz:client_id:" + s.profile
}
