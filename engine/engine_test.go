package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/pkg/recotest"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/store"
)

type fixture struct {
	interactions *recotest.Interactions
	catalog      *recotest.Catalog
}

// newFixture 构造一个小型商店：
//
//	u1 最近浏览过 P1、买过 P4；相似用户 u2 买过 P3、E1、P4
//	订单 o1 = {P1, P3}，o2 = {P4, P2}
func newFixture() *fixture {
	catalog := recotest.NewCatalog(
		core.Product{ID: "P1", Category: "shoes", ProductType: "physical", Tags: []string{"running"}, Price: 100},
		core.Product{ID: "P2", Category: "shoes", ProductType: "physical", Tags: []string{"running"}, Price: 90},
		core.Product{ID: "P3", Category: "shoes", ProductType: "physical", Tags: []string{"trail"}, Price: 110},
		core.Product{ID: "P4", Category: "socks", ProductType: "physical", Tags: []string{"running"}, Price: 10},
		core.Product{ID: "E1", Category: "ebooks", ProductType: "digital", Tags: []string{"guide"}, Price: 15},
		core.Product{ID: "E2", Category: "ebooks", ProductType: "digital", Tags: []string{"guide"}, Price: 12},
	)
	now := time.Now()
	interactions := &recotest.Interactions{
		Events: map[string][]core.InteractionEvent{
			"u1": {
				{UserID: "u1", ProductID: "P1", Action: core.ActionView, Timestamp: now.Add(-time.Hour), DurationSeconds: 45},
				{UserID: "u1", ProductID: "P4", Action: core.ActionPurchase, Timestamp: now.Add(-48 * time.Hour), OrderID: "o2"},
			},
		},
		Purchases:    map[string][]string{"u1": {"P4"}},
		SimilarUsers: map[string][]core.SimilarUser{"u1": {{UserID: "u2", Similarity: 0.8}}},
		Popular: []core.PopularProduct{
			{ProductID: "P4", Popularity: 6, ProductType: "physical"},
			{ProductID: "P3", Popularity: 5, ProductType: "physical"},
			{ProductID: "E1", Popularity: 4, ProductType: "digital"},
		},
		Trending: []core.TrendingProduct{
			{ProductID: "E1", TrendScore: 0.9, Category: "ebooks"},
			{ProductID: "P2", TrendScore: 0.8, Category: "shoes"},
			{ProductID: "E2", TrendScore: 0.5, Category: "ebooks"},
		},
		ProductTypes: catalog.ProductTypes(),
		Orders: []core.OrderItem{
			{OrderID: "o1", ProductID: "P1"}, {OrderID: "o1", ProductID: "P3"},
			{OrderID: "o2", ProductID: "P4"}, {OrderID: "o2", ProductID: "P2"},
		},
	}
	return &fixture{interactions: interactions, catalog: catalog}
}

func newEngine(t *testing.T, fx *fixture, opts ...Option) *Engine {
	t.Helper()
	e, err := New(fx.interactions, fx.catalog, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func withBlacklist(t *testing.T, ids ...string) []Option {
	t.Helper()
	adapter := filter.NewStoreAdapter(store.NewMemoryStore())
	require.NoError(t, adapter.SetBlacklist(context.Background(), "bl", ids))
	s := DefaultSettings()
	s.BlacklistKey = "bl"
	return []Option{WithSettings(s), WithBlacklistStore(adapter)}
}

func assertWellFormed(t *testing.T, res *core.RecommendationResult, limit int) {
	t.Helper()
	require.NotNil(t, res)
	assert.NotNil(t, res.Recommendations)
	assert.LessOrEqual(t, len(res.Recommendations), limit)
	seen := make(map[string]struct{})
	for _, rec := range res.Recommendations {
		_, dup := seen[rec.ProductID]
		assert.False(t, dup, "duplicate %s", rec.ProductID)
		seen[rec.ProductID] = struct{}{}
		assert.GreaterOrEqual(t, rec.Confidence, core.MinConfidenceThreshold)
		assert.LessOrEqual(t, rec.Confidence, 1.0)
	}
}

func TestNewRequiresRepositories(t *testing.T) {
	_, err := New(nil, recotest.NewCatalog())
	assert.True(t, core.IsInvalidInput(err))
	_, err = New(&recotest.Interactions{}, nil)
	assert.True(t, core.IsInvalidInput(err))
}

// TestGenerateHybrid 测试多策略合并：排除当前商品、已购与黑名单，多个策略命中的商品带多个理由
func TestGenerateHybrid(t *testing.T) {
	fx := newFixture()
	e := newEngine(t, fx, withBlacklist(t, "E1")...)

	rctx := &core.RecommendationContext{UserID: "u1", ProductID: "P1", IncludeReasoning: true}
	res, err := e.GenerateRecommendations(context.Background(), rctx)
	require.NoError(t, err)

	assert.Equal(t, core.AlgorithmHybrid, res.Algorithm)
	assertWellFormed(t, res, core.DefaultLimit)
	assert.ElementsMatch(t, []string{"P2", "P3"}, res.ProductIDs())
	for _, rec := range res.Recommendations {
		assert.GreaterOrEqual(t, len(rec.Reasons), 2, rec.ProductID)
		assert.NotEmpty(t, rec.Reasoning)
	}
	assert.Contains(t, res.ContextUsed, "user_id")
	assert.Contains(t, res.ContextUsed, "product_id")
	assert.Contains(t, res.ContextUsed, "history.purchased_products")
	assert.Len(t, res.StrategyStats, 5)

	// 请求上下文不被修改
	assert.Empty(t, rctx.Category)
	assert.Empty(t, rctx.History.PurchasedProducts)
}

func TestGenerateIsDeterministic(t *testing.T) {
	fx := newFixture()
	e := newEngine(t, fx)
	rctx := &core.RecommendationContext{UserID: "u1", ProductID: "P1"}

	first, err := e.GenerateRecommendations(context.Background(), rctx)
	require.NoError(t, err)
	second, err := e.GenerateRecommendations(context.Background(), rctx)
	require.NoError(t, err)

	require.Equal(t, first.ProductIDs(), second.ProductIDs())
	for i := range first.Recommendations {
		assert.Equal(t, first.Recommendations[i].Score, second.Recommendations[i].Score)
		assert.Equal(t, first.Recommendations[i].Confidence, second.Recommendations[i].Confidence)
	}
}

// TestGenerateAnonymousUsesTrending 测试匿名请求走热门兜底并按 limit 截断
func TestGenerateAnonymousUsesTrending(t *testing.T) {
	fx := newFixture()
	fx.interactions.Trending = []core.TrendingProduct{
		{ProductID: "A", TrendScore: 0.9},
		{ProductID: "B", TrendScore: 0.5},
		{ProductID: "C", TrendScore: 0.7},
	}
	e := newEngine(t, fx)

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{
		Session: core.SessionState{ViewedProducts: []string{"P1"}},
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, core.AlgorithmTrendingFallback, res.Algorithm)
	assert.Equal(t, []string{"A", "C"}, res.ProductIDs())
	assert.InDelta(t, 0.45, res.Recommendations[0].Score, 1e-9)
	assert.InDelta(t, 0.6, res.Recommendations[0].Confidence, 1e-9)
	assertWellFormed(t, res, 2)
}

func TestGenerateWithoutPersonalSignal(t *testing.T) {
	fx := newFixture()
	e := newEngine(t, fx)

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{UserID: "nobody"})
	require.NoError(t, err)
	assert.Equal(t, core.AlgorithmTrendingFallback, res.Algorithm)
	assert.Equal(t, []string{"E1", "P2", "E2"}, res.ProductIDs())
	// 先查过行为日志才决定走热门
	assert.Equal(t, 1, fx.interactions.Calls(recotest.MethodGetUserInteractions))
}

// TestGenerateViewOnlyUser 测试只有落库浏览记录的用户也会走个性化策略
func TestGenerateViewOnlyUser(t *testing.T) {
	fx := newFixture()
	fx.interactions.Events["u9"] = []core.InteractionEvent{
		{UserID: "u9", ProductID: "P1", Action: core.ActionView, Timestamp: time.Now().Add(-time.Hour), DurationSeconds: 45},
	}
	e := newEngine(t, fx)

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{UserID: "u9"})
	require.NoError(t, err)
	assert.Equal(t, core.AlgorithmHybrid, res.Algorithm)
	assertWellFormed(t, res, core.DefaultLimit)

	byID := make(map[string]*core.AggregatedRecommendation)
	for _, rec := range res.Recommendations {
		byID[rec.ProductID] = rec
	}
	require.Contains(t, byID, "P2")
	assert.True(t, byID["P2"].HasReason(core.ReasonBehavioral))
	assert.NotContains(t, byID, "P1")
}

// TestGenerateExcludeRecentlyViewed 测试原本排第一的商品在会话中看过后不再出现
func TestGenerateExcludeRecentlyViewed(t *testing.T) {
	fx := newFixture()
	fx.interactions.Trending = append([]core.TrendingProduct{
		{ProductID: "P6", TrendScore: 1, Category: "shoes"},
	}, fx.interactions.Trending...)
	e := newEngine(t, fx)

	rctx := &core.RecommendationContext{Session: core.SessionState{ViewedProducts: []string{"P6"}}}
	res, err := e.GenerateRecommendations(context.Background(), rctx)
	require.NoError(t, err)
	require.NotEmpty(t, res.Recommendations)
	assert.Equal(t, "P6", res.Recommendations[0].ProductID)

	rctx.ExcludeRecentlyViewed = true
	res, err = e.GenerateRecommendations(context.Background(), rctx)
	require.NoError(t, err)
	assert.NotContains(t, res.ProductIDs(), "P6")
	assert.Equal(t, []string{"E1", "P2", "E2"}, res.ProductIDs())
	assertWellFormed(t, res, core.DefaultLimit)
}

// TestGenerateUnknownProduct 测试不存在的商品 ID 回退到热门
func TestGenerateUnknownProduct(t *testing.T) {
	fx := newFixture()
	e := newEngine(t, fx)

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{UserID: "u1", ProductID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, core.AlgorithmTrendingFallback, res.Algorithm)
	assert.NotEmpty(t, res.Recommendations)
	assert.NotContains(t, res.ContextUsed, "product_id")
	assertWellFormed(t, res, core.DefaultLimit)
}

func TestGenerateLimitCap(t *testing.T) {
	fx := newFixture()
	fx.interactions.Trending = nil
	for i := 0; i < 30; i++ {
		fx.interactions.Trending = append(fx.interactions.Trending, core.TrendingProduct{
			ProductID:  fmt.Sprintf("T%02d", i),
			TrendScore: 1 - float64(i)/100,
		})
	}
	e := newEngine(t, fx)

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, core.MaxLimit)

	res, err = e.GenerateRecommendations(context.Background(), &core.RecommendationContext{})
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, core.DefaultLimit)
	assert.Equal(t, "T00", res.Recommendations[0].ProductID)
}

// TestGenerateEmptyFallback 测试所有策略都没有结果时返回空的 fallback
func TestGenerateEmptyFallback(t *testing.T) {
	e := newEngine(t, &fixture{
		interactions: &recotest.Interactions{},
		catalog:      recotest.NewCatalog(core.Product{ID: "P1", Category: "shoes", ProductType: "physical"}),
	})

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{UserID: "u1", ProductID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, core.AlgorithmFallback, res.Algorithm)
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)
}

// TestGenerateAllRepositoriesFailing 测试仓储全部故障时不返回错误
func TestGenerateAllRepositoriesFailing(t *testing.T) {
	fx := newFixture()
	boom := errors.New("db down")
	for _, m := range []string{
		recotest.MethodGetUserInteractions,
		recotest.MethodGetUserPurchaseHistory,
		recotest.MethodFindSimilarUsers,
		recotest.MethodGetPopularProductsByUsers,
		recotest.MethodGetTrendingProducts,
		recotest.MethodGetOrderItemGroups,
	} {
		fx.interactions.Fail(m, boom)
	}
	for _, m := range []string{
		recotest.MethodGetProductCatalogDetails,
		recotest.MethodFindSimilarProducts,
		recotest.MethodCalculateContentSimilarity,
		recotest.MethodSearchProducts,
	} {
		fx.catalog.Fail(m, boom)
	}
	e := newEngine(t, fx)

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{UserID: "u1", ProductID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, core.AlgorithmFallback, res.Algorithm)
	assert.Empty(t, res.Recommendations)
	assert.NotEmpty(t, res.StrategyStats)
}

// TestGenerateSlowStrategy 测试单个策略超时不影响其他策略
func TestGenerateSlowStrategy(t *testing.T) {
	fx := newFixture()
	fx.interactions.Block(recotest.MethodFindSimilarUsers)
	s := DefaultSettings()
	s.StrategyTimeout = 200 * time.Millisecond
	e := newEngine(t, fx, WithSettings(s))

	start := time.Now()
	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{UserID: "u1", ProductID: "P1"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, core.AlgorithmHybrid, res.Algorithm)
	assert.NotEmpty(t, res.Recommendations)

	var collab *core.StrategyStat
	for i := range res.StrategyStats {
		if res.StrategyStats[i].Name == "recall.collaborative" {
			collab = &res.StrategyStats[i]
		}
	}
	require.NotNil(t, collab)
	assert.True(t, collab.Failed)
	for _, rec := range res.Recommendations {
		assert.False(t, rec.HasReason(core.ReasonCollaborative))
	}
}

func TestGenerateCanceled(t *testing.T) {
	e := newEngine(t, newFixture())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.GenerateRecommendations(ctx, &core.RecommendationContext{UserID: "u1", ProductID: "P1"})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestGenerateSameTypeOnly 测试数字商品只推荐数字商品
func TestGenerateSameTypeOnly(t *testing.T) {
	fx := newFixture()
	fx.interactions.Orders = append(fx.interactions.Orders,
		core.OrderItem{OrderID: "o3", ProductID: "E1"}, core.OrderItem{OrderID: "o3", ProductID: "P1"},
		core.OrderItem{OrderID: "o4", ProductID: "E1"}, core.OrderItem{OrderID: "o4", ProductID: "P1"},
		core.OrderItem{OrderID: "o5", ProductID: "E1"}, core.OrderItem{OrderID: "o5", ProductID: "P1"},
	)
	e := newEngine(t, fx)

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{
		UserID:       "u9",
		ProductID:    "E1",
		SameTypeOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, core.AlgorithmHybrid, res.Algorithm)
	require.NotEmpty(t, res.Recommendations)
	assert.Contains(t, res.ProductIDs(), "E2")
	for _, rec := range res.Recommendations {
		assert.Equal(t, "digital", rec.Metadata.ProductType, rec.ProductID)
	}
	assert.Contains(t, res.ContextUsed, "product_type")
}

func TestGenerateExclusionsAndExpression(t *testing.T) {
	fx := newFixture()
	fx.interactions.Trending = []core.TrendingProduct{
		{ProductID: "A", TrendScore: 0.9},
		{ProductID: "B", TrendScore: 0.5},
		{ProductID: "C", TrendScore: 0.7},
	}
	e := newEngine(t, fx)

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{
		ExcludeProducts: []string{"A"},
		Expression:      "item.score > 0.3",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, res.ProductIDs())
}

type stubSource struct {
	name string
	fn   func(ctx context.Context, rctx *core.RecommendationContext) ([]*core.Candidate, error)
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Recall(ctx context.Context, rctx *core.RecommendationContext) ([]*core.Candidate, error) {
	return s.fn(ctx, rctx)
}

// TestGenerateCustomStrategies 测试自定义策略以及策略 panic 时的降级
func TestGenerateCustomStrategies(t *testing.T) {
	good := stubSource{name: "good", fn: func(context.Context, *core.RecommendationContext) ([]*core.Candidate, error) {
		return []*core.Candidate{{ProductID: "P2", Score: 0.9, Confidence: 0.9, Reason: core.ReasonContent}}, nil
	}}
	bad := stubSource{name: "bad", fn: func(context.Context, *core.RecommendationContext) ([]*core.Candidate, error) {
		panic("boom")
	}}
	e := newEngine(t, newFixture(), WithStrategies(good, bad))

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{UserID: "u1", ProductID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, core.AlgorithmHybrid, res.Algorithm)
	assert.Equal(t, []string{"P2"}, res.ProductIDs())
	require.Len(t, res.StrategyStats, 2)
	assert.True(t, res.StrategyStats[1].Failed)
}

func TestDisabledStrategies(t *testing.T) {
	s := DefaultSettings()
	s.Disabled = []core.Reason{core.ReasonTrending, core.ReasonContent}
	e := newEngine(t, newFixture(), WithSettings(s))

	res, err := e.GenerateRecommendations(context.Background(), &core.RecommendationContext{UserID: "u1", ProductID: "P1"})
	require.NoError(t, err)
	assert.Len(t, res.StrategyStats, 3)
	for _, rec := range res.Recommendations {
		assert.False(t, rec.HasReason(core.ReasonTrending))
		assert.False(t, rec.HasReason(core.ReasonContent))
	}
}

// TestTrackUserBehavior 测试行为上报异步落库，非法事件被丢弃
func TestTrackUserBehavior(t *testing.T) {
	fx := newFixture()
	e := newEngine(t, fx)

	e.TrackUserBehavior(context.Background(), core.InteractionEvent{ProductID: "P1", Action: core.ActionView})
	e.TrackUserBehavior(context.Background(), core.InteractionEvent{UserID: "u1", ProductID: "P2", Action: core.ActionCart})

	assert.Eventually(t, func() bool {
		return len(fx.interactions.AppendedEvents()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ev := fx.interactions.AppendedEvents()[0]
	assert.Equal(t, "P2", ev.ProductID)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
}

var _ recall.Source = stubSource{}
