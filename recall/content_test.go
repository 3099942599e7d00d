package recall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/recotest"
)

// TestContentRanksCategoryMatchFirst 测试类目完全匹配的商品排在仅标签部分匹配的商品前面
func TestContentRanksCategoryMatchFirst(t *testing.T) {
	catalog := recotest.NewCatalog(
		core.Product{ID: "P1", Category: "A", Tags: []string{"x"}},
		core.Product{ID: "P2", Category: "A"},
		core.Product{ID: "P3", Category: "A", Tags: []string{}},
		core.Product{ID: "P4", Category: "B", Tags: []string{"x", "y"}},
	)
	r := &Content{Catalog: catalog}

	cands, err := r.Recall(context.Background(), &core.RecommendationContext{
		UserID:  "u1",
		History: core.UserHistory{PurchasedProducts: []string{"P1", "P2"}},
	})
	require.NoError(t, err)
	require.Len(t, cands, 2, "owned products are not recommended")

	p3, p4 := cands[0], cands[1]
	assert.Equal(t, "P3", p3.ProductID)
	assert.InDelta(t, 0.6, p3.Score, 1e-9)
	assert.InDelta(t, 0.72, p3.Confidence, 1e-9)
	require.NotNil(t, p3.Metadata.Content)
	assert.InDelta(t, 1.0, p3.Metadata.Content.CategoryMatchRatio, 1e-9)

	assert.Equal(t, "P4", p4.ProductID)
	assert.InDelta(t, 0.2, p4.Score, 1e-9) // 0.4 × 1/2
	assert.InDelta(t, 0.24, p4.Confidence, 1e-9)
	assert.Equal(t, []string{"x"}, p4.Metadata.Content.MatchedTags)
	assert.Greater(t, p3.Score, p4.Score)
}

// TestContentProfileFromFavorites 测试没有购买历史时使用收藏类目与当前类目
func TestContentProfileFromFavorites(t *testing.T) {
	catalog := recotest.NewCatalog(
		core.Product{ID: "P1", Category: "A"},
		core.Product{ID: "P2", Category: "B"},
		core.Product{ID: "P3", Category: "C"},
	)
	r := &Content{Catalog: catalog}
	cands, err := r.Recall(context.Background(), &core.RecommendationContext{
		UserID:   "u1",
		Category: "A",
		History:  core.UserHistory{FavoriteCategories: []string{"A", "B"}},
	})
	require.NoError(t, err)
	require.Len(t, cands, 2)
	// A 权重 2，B 权重 1
	assert.Equal(t, "P1", cands[0].ProductID)
	assert.InDelta(t, 0.6, cands[0].Score, 1e-9)
	assert.Equal(t, "P2", cands[1].ProductID)
	assert.InDelta(t, 0.3, cands[1].Score, 1e-9)
}

func TestContentNoProfile(t *testing.T) {
	catalog := recotest.NewCatalog(core.Product{ID: "P1", Category: "A"})
	cands, err := (&Content{Catalog: catalog}).Recall(context.Background(), &core.RecommendationContext{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, cands)
	assert.Zero(t, catalog.Calls(recotest.MethodSearchProducts))
}

func TestTopKeys(t *testing.T) {
	weights := map[string]float64{"a": 1, "b": 3, "c": 3, "d": 0}
	assert.Equal(t, []string{"b", "c"}, topKeys(weights, 2))
	assert.Equal(t, []string{"b", "c", "a"}, topKeys(weights, 5))
}
