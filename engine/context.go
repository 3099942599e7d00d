package engine

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// enrich 在请求副本上补齐上下文：已购历史、当前商品的类目与类型。
// 返回 true 表示上下文引用了不存在的商品，应走热门兜底。
func (e *Engine) enrich(ctx context.Context, rc *core.RecommendationContext) bool {
	if rc.UserID != "" && len(rc.History.PurchasedProducts) == 0 {
		purchased, err := e.interactions.GetUserPurchaseHistory(ctx, rc.UserID)
		if err != nil {
			e.logger.Warn().Err(err).Str("user_id", rc.UserID).Msg("load purchase history failed")
		} else {
			rc.History.PurchasedProducts = purchased
		}
	}

	if rc.ProductID == "" {
		return false
	}
	details, err := e.catalog.GetProductCatalogDetails(ctx, []string{rc.ProductID})
	if err != nil {
		// 目录不可用时无法判断商品是否存在，按有效处理，由各策略自行降级
		e.logger.Warn().Err(err).Str("product_id", rc.ProductID).Msg("load seed product failed")
		return false
	}
	seed, ok := core.ProductIndex(details)[rc.ProductID]
	if !ok {
		e.logger.Info().
			Err(core.ErrInvalidContext("unknown product "+rc.ProductID)).
			Str("user_id", rc.UserID).
			Msg("falling back to trending")
		rc.ProductID = ""
		return true
	}
	if rc.Category == "" {
		rc.Category = seed.Category
	}
	if rc.SameTypeOnly && rc.ProductType == "" {
		rc.ProductType = seed.ProductType
	}
	return false
}

// personalizable 判断是否走个性化策略。匿名请求一律走热门；
// 上下文里没有任何信号的用户，只要行为日志中有记录（例如只有浏览）也算有个性化信号。
func (e *Engine) personalizable(ctx context.Context, rc *core.RecommendationContext) bool {
	if rc.IsAnonymous() {
		return false
	}
	if rc.HasPersonalSignal() {
		return true
	}
	events, err := e.interactions.GetUserInteractions(ctx, rc.UserID, "", 1)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", rc.UserID).Msg("load interaction log failed")
		return false
	}
	return len(events) > 0
}

// contextUsed 列出本次请求实际用到的上下文字段。
func contextUsed(rc *core.RecommendationContext) []string {
	used := make([]string, 0, 8)
	add := func(cond bool, name string) {
		if cond {
			used = append(used, name)
		}
	}
	add(rc.UserID != "", "user_id")
	add(rc.ProductID != "", "product_id")
	add(rc.Category != "", "category")
	add(rc.ProductType != "", "product_type")
	add(rc.SameTypeOnly, "same_type_only")
	add(len(rc.Session.ViewedProducts) > 0, "session.viewed_products")
	add(len(rc.Session.CartItems) > 0, "session.cart_items")
	add(len(rc.History.PurchasedProducts) > 0, "history.purchased_products")
	add(len(rc.History.FavoriteCategories) > 0, "history.favorite_categories")
	add(len(rc.History.FavoriteProductTypes) > 0, "history.favorite_product_types")
	add(rc.ExcludeRecentlyViewed, "exclude_recently_viewed")
	add(len(rc.ExcludeProducts) > 0, "exclude_products")
	add(rc.Expression != "", "expression")
	add(rc.IncludeReasoning, "include_reasoning")
	return used
}
