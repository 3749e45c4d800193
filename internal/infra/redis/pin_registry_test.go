package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinRegistryReservesOnce(t *testing.T) {
	mr, client := newTestRedis(t)
	reg := NewPinRegistry(client, time.Minute)
	ctx := context.Background()

	ok, err := reg.Reserve(ctx, "424242", "game-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("quizblitz:pin:424242"), "redis key is set")
	ok, _ = reg.Reserve(ctx, "424242", "game-2")
	assert.False(t, ok, "duplicate reservation must fail")

	gameID, found, err := reg.Lookup(ctx, "424242")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "game-1", gameID)

	require.NoError(t, reg.Release(ctx, "424242"))
	assert.False(t, mr.Exists("quizblitz:pin:424242"), "redis key is removed")
	_, found, _ = reg.Lookup(ctx, "424242")
	assert.False(t, found, "released pin is unknown")
}

func TestPinRegistryExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	reg := NewPinRegistry(client, time.Minute)
	ctx := context.Background()

	_, _ = reg.Reserve(ctx, "111111", "game-1")
	mr.FastForward(2 * time.Minute)

	ok, err := reg.Reserve(ctx, "111111", "game-2")
	require.NoError(t, err)
	assert.True(t, ok, "expired pin is reusable")
}

func TestIdentityStorePerProfile(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	store := NewIdentityStore(client, "alice")

	id, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, store.Save(ctx, "client-1"))
	got, err := mr.Get("quizblitz:client_id:alice")
	require.NoError(t, err)
	assert.Equal(t, "client-1", got)

	id, _ = NewIdentityStore(client, "bob").Load(ctx)
	assert.Empty(t, id, "profiles must not share ids")
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
