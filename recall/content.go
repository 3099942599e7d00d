package recall

import (
	"context"
	"math"
	"sort"

	"github.com/rushteam/hybridrec/core"
)

const (
	contentCategoryWeight  = 0.6
	contentTagWeight       = 0.4
	contentConfidenceScale = 1.2
	contentConfidenceFloor = 0.3
)

// Content 是基于内容的召回源（Content-Based Recommendation）。
//
// 核心思想："用户喜欢具有某些特征的商品，推荐具有相似特征的其他商品"
//
// 画像：对已购商品的类目/标签计数加权（收藏类目、当前浏览类目各记 1 次），
// 取 Top3 类目与 Top5 标签去目录检索候选，然后打分：
//
//	score = 0.6 × categoryMatchRatio + 0.4 × tagOverlapRatio
//	categoryMatchRatio = 候选类目在画像中的权重 / 最强类目权重（类目不在 Top3 时为 0）
//	tagOverlapRatio    = |候选标签 ∩ Top5 标签| / |候选标签|
//
// 至少命中一个信号时 confidence = min(score×1.2, 1)，否则取 0.3 的下限。
type Content struct {
	Catalog core.CatalogRepository

	// TopCategories 画像中用于检索的类目数
	TopCategories int

	// TopTags 画像中用于检索的标签数
	TopTags int

	// TopK 返回 TopK 个候选
	TopK int
}

func (r *Content) Name() string {
	return "recall.content"
}

// profile 是用户的类目/标签权重画像。
type profile struct {
	categories map[string]float64
	tags       map[string]float64
}

func (r *Content) Recall(
	ctx context.Context,
	rctx *core.RecommendationContext,
) ([]*core.Candidate, error) {
	if r.Catalog == nil || rctx == nil {
		return nil, nil
	}

	topCats := r.TopCategories
	if topCats <= 0 {
		topCats = 3
	}
	topTags := r.TopTags
	if topTags <= 0 {
		topTags = 5
	}
	topK := r.TopK
	if topK <= 0 {
		topK = defaults.DefaultTopKItems()
	}

	prof, err := r.buildProfile(ctx, rctx)
	if err != nil {
		return nil, err
	}
	cats := topKeys(prof.categories, topCats)
	tags := topKeys(prof.tags, topTags)
	if len(cats) == 0 && len(tags) == 0 {
		return nil, nil
	}

	products, err := r.Catalog.SearchProducts(ctx, core.ProductQuery{
		Categories:  cats,
		Tags:        tags,
		ProductType: typeConstraint(rctx),
		Limit:       topK * 3,
	})
	if err != nil {
		return nil, core.ErrRepositoryUnavailable("search products", err)
	}

	var maxCatWeight float64
	for _, c := range cats {
		maxCatWeight = math.Max(maxCatWeight, prof.categories[c])
	}
	catSet := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		catSet[c] = struct{}{}
	}
	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagSet[t] = struct{}{}
	}

	owned := rctx.OwnedSet()
	out := make([]*core.Candidate, 0, len(products))
	for _, p := range products {
		if _, ok := owned[p.ID]; ok {
			continue
		}

		var catRatio float64
		if _, ok := catSet[p.Category]; ok && maxCatWeight > 0 {
			catRatio = prof.categories[p.Category] / maxCatWeight
		}

		matched := make([]string, 0)
		for _, t := range uniqueStrings(p.Tags) {
			if _, ok := tagSet[t]; ok {
				matched = append(matched, t)
			}
		}
		var tagRatio float64
		if n := len(uniqueStrings(p.Tags)); n > 0 {
			tagRatio = float64(len(matched)) / float64(n)
		}

		score := contentCategoryWeight*catRatio + contentTagWeight*tagRatio
		conf := contentConfidenceFloor
		if catRatio > 0 || len(matched) > 0 {
			conf = math.Min(score*contentConfidenceScale, 1)
		}

		c := &core.Candidate{
			ProductID:  p.ID,
			Score:      score,
			Reason:     core.ReasonContent,
			Confidence: conf,
		}
		c.Metadata.ApplyProduct(p)
		c.Metadata.Content = &core.ContentMeta{
			CategoryMatchRatio: catRatio,
			TagOverlapRatio:    tagRatio,
			MatchedTags:        matched,
		}
		out = append(out, c)
	}

	return truncate(keepBest(out), topK), nil
}

func (r *Content) buildProfile(ctx context.Context, rctx *core.RecommendationContext) (*profile, error) {
	prof := &profile{
		categories: make(map[string]float64),
		tags:       make(map[string]float64),
	}
	if len(rctx.History.PurchasedProducts) > 0 {
		owned, err := r.Catalog.GetProductCatalogDetails(ctx, rctx.History.PurchasedProducts)
		if err != nil {
			return nil, core.ErrRepositoryUnavailable("get product details", err)
		}
		for _, p := range owned {
			if p.Category != "" {
				prof.categories[p.Category]++
			}
			for _, t := range uniqueStrings(p.Tags) {
				prof.tags[t]++
			}
		}
	}
	for _, c := range rctx.History.FavoriteCategories {
		if c != "" {
			prof.categories[c]++
		}
	}
	if rctx.Category != "" {
		prof.categories[rctx.Category]++
	}
	return prof, nil
}

// topKeys 按权重降序、名称升序取前 k 个 key。
func topKeys(weights map[string]float64, k int) []string {
	keys := make([]string, 0, len(weights))
	for key, w := range weights {
		if w > 0 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if weights[keys[i]] != weights[keys[j]] {
			return weights[keys[i]] > weights[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}

func uniqueStrings(in []string) []string {
	if len(in) <= 1 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
