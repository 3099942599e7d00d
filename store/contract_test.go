package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

// runKeyValueContract 校验所有 KeyValueStore 实现都遵守的读写语义。
func runKeyValueContract(t *testing.T, s core.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		_, err := s.Get(ctx, "c:missing")
		assert.True(t, core.IsStoreNotFound(err))
		_, err = s.HGet(ctx, "c:missing", "f")
		assert.True(t, core.IsStoreNotFound(err))
		_, err = s.ZScore(ctx, "c:missing", "m")
		assert.True(t, core.IsStoreNotFound(err))
	})

	t.Run("zset order", func(t *testing.T) {
		require.NoError(t, s.ZAdd(ctx, "c:z", 1, "a"))
		require.NoError(t, s.ZAdd(ctx, "c:z", 2, "b"))
		require.NoError(t, s.ZAdd(ctx, "c:z", 2, "c"))
		_, err := s.ZIncrBy(ctx, "c:z", 0.5, "a")
		require.NoError(t, err)

		members, err := s.ZRange(ctx, "c:z", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, members)

		scored, err := s.ZRangeWithScores(ctx, "c:z", 2, 2)
		require.NoError(t, err)
		assert.Equal(t, []core.ScoredMember{{Member: "a", Score: 1.5}}, scored)
	})

	t.Run("hash", func(t *testing.T) {
		require.NoError(t, s.HSet(ctx, "c:h", "x", []byte("1")))
		require.NoError(t, s.HSet(ctx, "c:h", "y", []byte("2")))
		all, err := s.HGetAll(ctx, "c:h")
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"x": []byte("1"), "y": []byte("2")}, all)
	})
}
