package core

import "time"

// SessionState 是当前会话内的实时信号。
type SessionState struct {
	ViewedProducts []string `json:"viewed_products,omitempty"`
	CartItems      []string `json:"cart_items,omitempty"`
	SearchTerms    []string `json:"search_terms,omitempty"`
}

// UserHistory 是调用方已知的用户长期信号。
// PurchasedProducts 为空且 UserID 非空时，引擎会从 InteractionRepository 补齐。
type UserHistory struct {
	PurchasedProducts    []string  `json:"purchased_products,omitempty"`
	FavoriteCategories   []string  `json:"favorite_categories,omitempty"`
	FavoriteProductTypes []string  `json:"favorite_product_types,omitempty"`
	AvgOrderValue        float64   `json:"avg_order_value,omitempty" validate:"gte=0"`
	LastPurchaseDate     time.Time `json:"last_purchase_date,omitempty"`
}

// RecommendationContext 承载一次推荐请求的用户/场景/会话信息，贯穿整个 Pipeline 透传。
// 每个请求构造一次，在推荐周期内只读。
type RecommendationContext struct {
	UserID      string `json:"user_id,omitempty"`
	ProductID   string `json:"product_id,omitempty"`
	Category    string `json:"category,omitempty"`
	ProductType string `json:"product_type,omitempty"`

	// SameTypeOnly 只推荐与 ProductType（或种子商品类型）一致的商品
	SameTypeOnly bool `json:"same_type_only,omitempty"`

	Session SessionState `json:"session_state"`
	History UserHistory  `json:"user_history"`

	// Limit 返回数量，<=0 使用默认值，超过上限会被截断
	Limit int `json:"limit,omitempty"`

	ExcludeRecentlyViewed bool `json:"exclude_recently_viewed,omitempty"`
	IncludeReasoning      bool `json:"include_reasoning,omitempty"`

	// ExcludeProducts 显式排除的商品（黑名单）
	ExcludeProducts []string `json:"exclude_products,omitempty"`

	// Expression 可选的 CEL 过滤表达式，例如 `item.price < 100.0`
	Expression string `json:"expression,omitempty"`
}

// IsAnonymous 判断请求是否没有用户身份。
func (rctx *RecommendationContext) IsAnonymous() bool {
	return rctx == nil || rctx.UserID == ""
}

// HasPersonalSignal 判断请求是否带有任何可用于个性化的信号。
func (rctx *RecommendationContext) HasPersonalSignal() bool {
	if rctx == nil {
		return false
	}
	return rctx.ProductID != "" ||
		rctx.Category != "" ||
		len(rctx.History.PurchasedProducts) > 0 ||
		len(rctx.History.FavoriteCategories) > 0 ||
		len(rctx.History.FavoriteProductTypes) > 0 ||
		len(rctx.Session.ViewedProducts) > 0 ||
		len(rctx.Session.CartItems) > 0
}

// EffectiveLimit 计算实际返回数量。
func (rctx *RecommendationContext) EffectiveLimit(defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if rctx != nil && rctx.Limit > 0 {
		limit = rctx.Limit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// ViewedSet 返回会话内浏览过的商品集合。
func (rctx *RecommendationContext) ViewedSet() map[string]struct{} {
	if rctx == nil {
		return nil
	}
	return toSet(rctx.Session.ViewedProducts)
}

// OwnedSet 返回用户已购买的商品集合。
func (rctx *RecommendationContext) OwnedSet() map[string]struct{} {
	if rctx == nil {
		return nil
	}
	return toSet(rctx.History.PurchasedProducts)
}

// SeedProducts 返回用于“搭配购买”的种子商品：已购、购物车、当前商品，去重且保持顺序。
func (rctx *RecommendationContext) SeedProducts() []string {
	if rctx == nil {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, len(rctx.History.PurchasedProducts)+len(rctx.Session.CartItems)+1)
	add := func(ids ...string) {
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	add(rctx.ProductID)
	add(rctx.Session.CartItems...)
	add(rctx.History.PurchasedProducts...)
	return out
}

// Clone 返回深拷贝，引擎在补齐上下文时不修改调用方的对象。
func (rctx *RecommendationContext) Clone() *RecommendationContext {
	if rctx == nil {
		return &RecommendationContext{}
	}
	c := *rctx
	c.Session.ViewedProducts = cloneStrings(rctx.Session.ViewedProducts)
	c.Session.CartItems = cloneStrings(rctx.Session.CartItems)
	c.Session.SearchTerms = cloneStrings(rctx.Session.SearchTerms)
	c.History.PurchasedProducts = cloneStrings(rctx.History.PurchasedProducts)
	c.History.FavoriteCategories = cloneStrings(rctx.History.FavoriteCategories)
	c.History.FavoriteProductTypes = cloneStrings(rctx.History.FavoriteProductTypes)
	c.ExcludeProducts = cloneStrings(rctx.ExcludeProducts)
	return &c
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
