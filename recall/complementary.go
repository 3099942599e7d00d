package recall

import (
	"context"
	"math"

	"github.com/rushteam/hybridrec/core"
)

const (
	complementaryScoreWeight  = 0.7
	complementaryScoreDivide  = 10.0
	complementaryConfDivide   = 5.0
	defaultComplementaryOrder = 1000
)

// Complementary 是搭配购买召回源（cross-sell，i2i 共现）。
//
// 核心思想："经常被一起买的商品，适合一起推荐"
//
// 算法流程：
//  1. 取最近的订单明细，按订单分组
//  2. 对种子商品（当前商品、购物车、已购）统计与其同单出现的其他商品频次
//  3. 同一伙伴商品取各种子中的最大频次
//  4. score = min(频次/10, 1) × 0.7，confidence = min(频次/5, 1)
type Complementary struct {
	Interactions core.InteractionRepository

	// OrderLimit 统计共现时读取的订单明细条数
	OrderLimit int

	// TopK 返回 TopK 个候选
	TopK int
}

func (r *Complementary) Name() string {
	return "recall.complementary"
}

func (r *Complementary) Recall(
	ctx context.Context,
	rctx *core.RecommendationContext,
) ([]*core.Candidate, error) {
	if r.Interactions == nil || rctx == nil {
		return nil, nil
	}
	seeds := rctx.SeedProducts()
	if len(seeds) == 0 {
		return nil, nil
	}

	orderLimit := r.OrderLimit
	if orderLimit <= 0 {
		orderLimit = defaultComplementaryOrder
	}
	topK := r.TopK
	if topK <= 0 {
		topK = defaults.DefaultTopKItems()
	}

	items, err := r.Interactions.GetOrderItemGroups(ctx, orderLimit)
	if err != nil {
		return nil, core.ErrRepositoryUnavailable("get order item groups", err)
	}
	cooc := coOccurrence(items)

	exclude := rctx.OwnedSet()
	for _, s := range seeds {
		exclude[s] = struct{}{}
	}

	type partner struct {
		seed string
		freq int
	}
	best := make(map[string]partner)
	for _, seed := range seeds {
		for id, freq := range cooc[seed] {
			if _, ok := exclude[id]; ok {
				continue
			}
			old, ok := best[id]
			if !ok || freq > old.freq || (freq == old.freq && seed < old.seed) {
				best[id] = partner{seed: seed, freq: freq}
			}
		}
	}

	out := make([]*core.Candidate, 0, len(best))
	for id, p := range best {
		f := float64(p.freq)
		c := &core.Candidate{
			ProductID:  id,
			Score:      math.Min(f/complementaryScoreDivide, 1) * complementaryScoreWeight,
			Reason:     core.ReasonComplementary,
			Confidence: math.Min(f/complementaryConfDivide, 1),
		}
		c.Metadata.Complementary = &core.ComplementaryMeta{
			SeedProductID: p.seed,
			Frequency:     p.freq,
		}
		out = append(out, c)
	}

	return truncate(keepBest(out), topK), nil
}

// coOccurrence 构建商品两两同单出现的次数：cooc[a][b] == cooc[b][a]。
// 同一订单内重复出现的商品只计一次。
func coOccurrence(items []core.OrderItem) map[string]map[string]int {
	orders := make(map[string][]string)
	seen := make(map[string]map[string]struct{})
	for _, it := range items {
		if it.OrderID == "" || it.ProductID == "" {
			continue
		}
		s, ok := seen[it.OrderID]
		if !ok {
			s = make(map[string]struct{})
			seen[it.OrderID] = s
		}
		if _, dup := s[it.ProductID]; dup {
			continue
		}
		s[it.ProductID] = struct{}{}
		orders[it.OrderID] = append(orders[it.OrderID], it.ProductID)
	}

	cooc := make(map[string]map[string]int)
	inc := func(a, b string) {
		m, ok := cooc[a]
		if !ok {
			m = make(map[string]int)
			cooc[a] = m
		}
		m[b]++
	}
	for _, products := range orders {
		for i := 0; i < len(products); i++ {
			for j := i + 1; j < len(products); j++ {
				inc(products[i], products[j])
				inc(products[j], products[i])
			}
		}
	}
	return cooc
}
