package recall

import (
	"context"
	"math"

	"github.com/rushteam/hybridrec/core"
)

const (
	trendingGeneralWeight      = 0.5
	trendingPersonalWeight     = 0.6
	trendingGeneralConfidence  = 0.6
	trendingPersonalConfidence = 0.7
)

// Trending 是热门召回源。
//
// 时间窗口默认 7 天，结果不足 TopK 时放宽到 MaxWindowDays（默认 30 天）。
// 有用户身份且有偏好（收藏类目/类型、当前类目）时做个性化：
// 只保留偏好类目内的商品，按偏好类型逐个查询；个性化结果为空时退回通用热门。
//
//	score = min(trendScore, 1) × {0.5 通用 | 0.6 个性化}
//	confidence = {0.6 通用 | 0.7 个性化}
type Trending struct {
	Interactions core.InteractionRepository

	// WindowDays 初始时间窗口（天）
	WindowDays int

	// MaxWindowDays 放宽后的最大时间窗口（天）
	MaxWindowDays int

	// TopK 返回 TopK 个候选
	TopK int

	// General 为 true 时总是返回通用热门，忽略用户偏好
	General bool
}

func (r *Trending) Name() string {
	if r.General {
		return "recall.trending.general"
	}
	return "recall.trending"
}

func (r *Trending) Recall(
	ctx context.Context,
	rctx *core.RecommendationContext,
) ([]*core.Candidate, error) {
	if r.Interactions == nil {
		return nil, nil
	}

	topK := r.TopK
	if topK <= 0 {
		topK = defaults.DefaultTopKItems()
	}

	if !r.General && r.personalizable(rctx) {
		out, err := r.personalized(ctx, rctx, topK)
		if err != nil {
			return nil, err
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return r.general(ctx, rctx, topK)
}

func (r *Trending) personalizable(rctx *core.RecommendationContext) bool {
	if rctx.IsAnonymous() {
		return false
	}
	return len(rctx.History.FavoriteCategories) > 0 ||
		len(rctx.History.FavoriteProductTypes) > 0 ||
		rctx.Category != ""
}

func (r *Trending) personalized(ctx context.Context, rctx *core.RecommendationContext, topK int) ([]*core.Candidate, error) {
	categories := make(map[string]struct{})
	for _, c := range rctx.History.FavoriteCategories {
		if c != "" {
			categories[c] = struct{}{}
		}
	}
	if rctx.Category != "" {
		categories[rctx.Category] = struct{}{}
	}

	types := []string{""}
	if t := typeConstraint(rctx); t != "" {
		types = []string{t}
	} else if len(rctx.History.FavoriteProductTypes) > 0 {
		types = uniqueStrings(rctx.History.FavoriteProductTypes)
	}

	// 类目过滤发生在拉取之后，多取一些
	fetch := topK
	if len(categories) > 0 {
		fetch = topK * 3
	}

	var trending []core.TrendingProduct
	var window int
	for _, t := range types {
		items, w, err := r.fetch(ctx, fetch, t)
		if err != nil {
			return nil, err
		}
		trending = append(trending, items...)
		window = max(window, w)
	}

	out := make([]*core.Candidate, 0, len(trending))
	owned := rctx.OwnedSet()
	for _, t := range trending {
		if len(categories) > 0 {
			if _, ok := categories[t.Category]; !ok {
				continue
			}
		}
		if _, ok := owned[t.ProductID]; ok {
			continue
		}
		out = append(out, trendingCandidate(t, window, true))
	}
	return truncate(keepBest(out), topK), nil
}

func (r *Trending) general(ctx context.Context, rctx *core.RecommendationContext, topK int) ([]*core.Candidate, error) {
	items, window, err := r.fetch(ctx, topK, typeConstraint(rctx))
	if err != nil {
		return nil, err
	}
	out := make([]*core.Candidate, 0, len(items))
	for _, t := range items {
		out = append(out, trendingCandidate(t, window, false))
	}
	return truncate(keepBest(out), topK), nil
}

// fetch 先用初始窗口查询，数量不足时放宽到最大窗口。返回实际使用的窗口。
func (r *Trending) fetch(ctx context.Context, limit int, productType string) ([]core.TrendingProduct, int, error) {
	window := r.WindowDays
	if window <= 0 {
		window = 7
	}
	maxWindow := r.MaxWindowDays
	if maxWindow < window {
		maxWindow = max(window, 30)
	}

	items, err := r.Interactions.GetTrendingProducts(ctx, window, limit, productType)
	if err != nil {
		return nil, 0, core.ErrRepositoryUnavailable("get trending products", err)
	}
	if len(items) >= limit || maxWindow == window {
		return items, window, nil
	}

	wider, err := r.Interactions.GetTrendingProducts(ctx, maxWindow, limit, productType)
	if err != nil {
		// 放宽失败时保留已有结果
		return items, window, nil
	}
	if len(wider) > len(items) {
		return wider, maxWindow, nil
	}
	return items, window, nil
}

func trendingCandidate(t core.TrendingProduct, window int, personalized bool) *core.Candidate {
	weight, conf := trendingGeneralWeight, trendingGeneralConfidence
	if personalized {
		weight, conf = trendingPersonalWeight, trendingPersonalConfidence
	}
	c := &core.Candidate{
		ProductID:  t.ProductID,
		Score:      math.Min(math.Max(t.TrendScore, 0), 1) * weight,
		Reason:     core.ReasonTrending,
		Confidence: conf,
	}
	c.Metadata.Category = t.Category
	c.Metadata.Trending = &core.TrendingMeta{
		TrendScore:   t.TrendScore,
		WindowDays:   window,
		Personalized: personalized,
	}
	return c
}
