package repository

import (
	"context"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
)

// GetUserInteractions 按时间倒序返回用户的某类行为；action 为空表示全部。
func (r *KV) GetUserInteractions(ctx context.Context, userID string, action core.Action, limit int) ([]core.InteractionEvent, error) {
	ids, err := r.Store.ZRange(ctx, r.key(keyEvents, userID), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]core.InteractionEvent, 0, min(len(ids), max(limit, 0)))
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		data, err := r.Store.HGet(ctx, r.key(keyEvent), id)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		var ev core.InteractionEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode interaction %s: %w", id, err)
		}
		if action != "" && ev.Action != action {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// GetUserPurchaseHistory 返回用户购买过的商品，最近的在前。
func (r *KV) GetUserPurchaseHistory(ctx context.Context, userID string) ([]string, error) {
	return r.Store.ZRange(ctx, r.key(keyActions, string(core.ActionPurchase), userID), 0, -1)
}

// FindSimilarUsers 按已购商品集合的 Jaccard 系数排序。
func (r *KV) FindSimilarUsers(ctx context.Context, userID string, limit int) ([]core.SimilarUser, error) {
	mine, err := r.GetUserPurchaseHistory(ctx, userID)
	if err != nil || len(mine) == 0 {
		return nil, err
	}

	overlap := make(map[string]int)
	for _, productID := range mine {
		buyers, err := r.Store.ZRange(ctx, r.key(keyActors, string(core.ActionPurchase), productID), 0, -1)
		if err != nil {
			return nil, err
		}
		for _, u := range buyers {
			if u != userID {
				overlap[u]++
			}
		}
	}

	out := make([]core.SimilarUser, 0, len(overlap))
	for u, n := range overlap {
		theirs, err := r.GetUserPurchaseHistory(ctx, u)
		if err != nil {
			return nil, err
		}
		union := len(mine) + len(theirs) - n
		if union <= 0 {
			continue
		}
		out = append(out, core.SimilarUser{UserID: u, Similarity: float64(n) / float64(union)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetPopularProductsByUsers 统计一组用户里发生过 action 的不同用户数。
func (r *KV) GetPopularProductsByUsers(ctx context.Context, userIDs []string, action core.Action, limit int, productType string) ([]core.PopularProduct, error) {
	counts := make(map[string]int)
	seenUser := make(map[string]struct{}, len(userIDs))
	for _, u := range userIDs {
		if _, ok := seenUser[u]; ok {
			continue
		}
		seenUser[u] = struct{}{}
		products, err := r.Store.ZRange(ctx, r.key(keyActions, string(action), u), 0, -1)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			counts[p]++
		}
	}
	if len(counts) == 0 {
		return nil, nil
	}

	types, err := r.productTypes(ctx, keys(counts))
	if err != nil {
		return nil, err
	}
	out := make([]core.PopularProduct, 0, len(counts))
	for id, n := range counts {
		if productType != "" && types[id] != productType {
			continue
		}
		out = append(out, core.PopularProduct{ProductID: id, Popularity: n, ProductType: types[id]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Popularity != out[j].Popularity {
			return out[i].Popularity > out[j].Popularity
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetTrendingProducts 汇总最近 days 天（含今天）的加权热度，并按最大值归一化到 [0,1]。
func (r *KV) GetTrendingProducts(ctx context.Context, days, limit int, productType string) ([]core.TrendingProduct, error) {
	if days <= 0 {
		days = 7
	}
	today := r.now().UTC()
	totals := make(map[string]float64)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, -i).Format(dayLayout)
		members, err := r.Store.ZRangeWithScores(ctx, r.key(keyTrending, day), 0, -1)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			totals[m.Member] += m.Score
		}
	}
	if len(totals) == 0 {
		return nil, nil
	}

	details, err := r.GetProductCatalogDetails(ctx, keys(totals))
	if err != nil {
		return nil, err
	}
	idx := core.ProductIndex(details)

	var top float64
	for _, v := range totals {
		top = max(top, v)
	}
	out := make([]core.TrendingProduct, 0, len(totals))
	for id, v := range totals {
		p, ok := idx[id]
		if !ok {
			// 已下架的商品不参与热门
			continue
		}
		if productType != "" && p.ProductType != productType {
			continue
		}
		out = append(out, core.TrendingProduct{ProductID: id, TrendScore: v / top, Category: p.Category})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TrendScore != out[j].TrendScore {
			return out[i].TrendScore > out[j].TrendScore
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetOrderItemGroups 返回最近订单的明细，最多 limit 条明细。
func (r *KV) GetOrderItemGroups(ctx context.Context, limit int) ([]core.OrderItem, error) {
	orderIDs, err := r.Store.ZRange(ctx, r.key(keyOrders), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]core.OrderItem, 0)
	for _, orderID := range orderIDs {
		data, err := r.Store.HGet(ctx, r.key(keyOrderItems), orderID)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return nil, err
		}
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", orderID, err)
		}
		for _, p := range items {
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
			out = append(out, core.OrderItem{OrderID: orderID, ProductID: p})
		}
	}
	return out, nil
}

func (r *KV) productTypes(ctx context.Context, ids []string) (map[string]string, error) {
	details, err := r.GetProductCatalogDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(details))
	for _, p := range details {
		out[p.ID] = p.ProductType
	}
	return out, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
