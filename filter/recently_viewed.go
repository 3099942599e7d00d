package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// RecentlyViewedFilter 在请求设置 ExcludeRecentlyViewed 时，过滤掉用户最近看过的商品。
// 会话内的浏览总是参与；Lookback>0 且配置了 Interactions 时，还会排除最近 Lookback 次落库的浏览。
type RecentlyViewedFilter struct {
	Interactions core.InteractionRepository
	Lookback     int
}

func (f *RecentlyViewedFilter) Name() string {
	return "filter.recently_viewed"
}

func (f *RecentlyViewedFilter) Prepare(ctx context.Context, rctx *core.RecommendationContext) (Filter, error) {
	if rctx == nil || !rctx.ExcludeRecentlyViewed {
		return nil, nil
	}
	viewed := rctx.ViewedSet()
	if f.Lookback > 0 && f.Interactions != nil && rctx.UserID != "" {
		events, err := f.Interactions.GetUserInteractions(ctx, rctx.UserID, core.ActionView, f.Lookback)
		if err != nil {
			// 落库浏览读取失败时退回会话浏览
			return idSetFilter{name: f.Name(), ids: viewed}, nil
		}
		for _, ev := range events {
			viewed[ev.ProductID] = struct{}{}
		}
	}
	if len(viewed) == 0 {
		return nil, nil
	}
	return idSetFilter{name: f.Name(), ids: viewed}, nil
}

func (f *RecentlyViewedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendationContext,
	rec *core.AggregatedRecommendation,
) (bool, error) {
	prepared, err := f.Prepare(ctx, rctx)
	if err != nil || prepared == nil {
		return false, err
	}
	return prepared.ShouldFilter(ctx, rctx, rec)
}

// idSetFilter 是 Prepare 的产物：按商品 ID 集合过滤。
type idSetFilter struct {
	name string
	ids  map[string]struct{}
}

func (f idSetFilter) Name() string { return f.name }

func (f idSetFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendationContext,
	rec *core.AggregatedRecommendation,
) (bool, error) {
	_, ok := f.ids[rec.ProductID]
	return ok, nil
}
