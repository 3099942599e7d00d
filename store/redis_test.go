package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

func newRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

// TestRedisContract 测试 Redis 实现与内存实现的语义一致
func TestRedisContract(t *testing.T) {
	s, _ := newRedis(t)
	runKeyValueContract(t, s)
}

func TestRedisGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedis(t)

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestRedisTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedis(t)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 10))
	assert.Positive(t, mr.TTL("k"))
}

func TestNewRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), addr, "", 0)
	assert.True(t, core.IsUnavailable(err))
}
