package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonsw/gonsw/internal/cache"
)

func newRedisStore(t *testing.T) (*cache.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := cache.NewRedisStore(context.Background(), cache.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestRedisStore_SetGet(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Set(ctx, "journeys:a:b", []byte(`{"legs":[]}`), time.Minute))

	value, err := store.Get(ctx, "journeys:a:b")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"legs":[]}`), value)

	assert.True(t, mr.Exists("gonsw:journeys:a:b"))
	assert.Equal(t, time.Minute, mr.TTL("gonsw:journeys:a:b"))
}

func TestRedisStore_Miss(t *testing.T) {
	store, _ := newRedisStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 30*time.Second))
	mr.FastForward(31 * time.Second)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, store.Delete(ctx, "k"))
	assert.False(t, mr.Exists("gonsw:k"))
}

func TestRedisStore_CustomPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewRedisStoreFromClient(client, "test:")
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, "redis", store.Name())
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cache.NewRedisStore(ctx, cache.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
