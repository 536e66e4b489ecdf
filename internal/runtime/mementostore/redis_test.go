package mementostore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	// Create a mock Redis server
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "facetmodel:memento:", ttl, nil)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestNewRedisStoreWithConfig(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := NewRedisStoreWithConfig(context.Background(), RedisConfig{Addr: mr.Addr(), Prefix: "p:"}, nil)
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	_, err = NewRedisStoreWithConfig(context.Background(), RedisConfig{Addr: "localhost:99999"}, nil)
	assert.Error(t, err)
}

func TestRedisStore_PutGetDelete(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", []byte{1, 2, 3}))
	assert.True(t, mr.Exists("facetmodel:memento:k1"))

	data, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Get(ctx, "k1")
	assert.True(t, IsNotFound(err))
	assert.NoError(t, store.Delete(ctx, "k1"))
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", []byte("x")))
	assert.Equal(t, time.Minute, mr.TTL("facetmodel:memento:k1"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "k1")
	assert.True(t, IsNotFound(err))
}

func TestRedisStore_Keys(t *testing.T) {
	store, mr := setupTestRedis(t, 0)
	ctx := context.Background()
	require.NoError(t, mr.Set("unrelated", "x"))

	for _, key := range []string{"b", "a", "c"} {
		require.NoError(t, store.Put(ctx, key, []byte(key)))
	}
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}
