// Package recotest 提供仓储的测试替身：固定数据 + 按方法注入错误或阻塞。
package recotest

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/hybridrec/core"
)

// 方法名，用于 Fail / Block。
const (
	MethodAppendInteraction          = "AppendInteraction"
	MethodGetUserInteractions        = "GetUserInteractions"
	MethodGetUserPurchaseHistory     = "GetUserPurchaseHistory"
	MethodFindSimilarUsers           = "FindSimilarUsers"
	MethodGetPopularProductsByUsers  = "GetPopularProductsByUsers"
	MethodGetTrendingProducts        = "GetTrendingProducts"
	MethodGetOrderItemGroups         = "GetOrderItemGroups"
	MethodGetProductCatalogDetails   = "GetProductCatalogDetails"
	MethodFindSimilarProducts        = "FindSimilarProducts"
	MethodCalculateContentSimilarity = "CalculateContentSimilarity"
	MethodSearchProducts             = "SearchProducts"
)

// faults 记录注入的错误、阻塞与调用次数。
type faults struct {
	mu    sync.Mutex
	fail  map[string]error
	block map[string]bool
	calls map[string]int
}

// Fail 让某个方法返回 err。
func (f *faults) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = make(map[string]error)
	}
	f.fail[method] = err
}

// Block 让某个方法阻塞直到 ctx 结束。
func (f *faults) Block(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.block == nil {
		f.block = make(map[string]bool)
	}
	f.block[method] = true
}

// Calls 返回某个方法被调用的次数。
func (f *faults) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *faults) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
	err := f.fail[method]
	block := f.block[method]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// Interactions 是 core.InteractionRepository 的测试替身。
type Interactions struct {
	faults

	// Events 按用户保存的行为，GetUserInteractions 按时间倒序返回
	Events map[string][]core.InteractionEvent
	// Purchases 用户已购商品
	Purchases map[string][]string
	// SimilarUsers 每个用户的相似用户（已排序）
	SimilarUsers map[string][]core.SimilarUser
	// Popular 对任意用户集合返回的热门商品
	Popular []core.PopularProduct
	// Trending 热门商品；TrendingByDays 设置时优先按窗口返回
	Trending       []core.TrendingProduct
	TrendingByDays map[int][]core.TrendingProduct
	// ProductTypes 供 Trending 按类型过滤
	ProductTypes map[string]string
	Orders       []core.OrderItem

	appendMu sync.Mutex
	Appended []core.InteractionEvent
}

var _ core.InteractionRepository = (*Interactions)(nil)

func (r *Interactions) AppendInteraction(ctx context.Context, ev core.InteractionEvent) error {
	if err := r.enter(ctx, MethodAppendInteraction); err != nil {
		return err
	}
	r.appendMu.Lock()
	defer r.appendMu.Unlock()
	r.Appended = append(r.Appended, ev)
	return nil
}

// AppendedEvents 返回已写入事件的副本。
func (r *Interactions) AppendedEvents() []core.InteractionEvent {
	r.appendMu.Lock()
	defer r.appendMu.Unlock()
	out := make([]core.InteractionEvent, len(r.Appended))
	copy(out, r.Appended)
	return out
}

func (r *Interactions) GetUserInteractions(ctx context.Context, userID string, action core.Action, limit int) ([]core.InteractionEvent, error) {
	if err := r.enter(ctx, MethodGetUserInteractions); err != nil {
		return nil, err
	}
	events := make([]core.InteractionEvent, 0)
	for _, ev := range r.Events[userID] {
		if action == "" || ev.Action == action {
			events = append(events, ev)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (r *Interactions) GetUserPurchaseHistory(ctx context.Context, userID string) ([]string, error) {
	if err := r.enter(ctx, MethodGetUserPurchaseHistory); err != nil {
		return nil, err
	}
	return append([]string(nil), r.Purchases[userID]...), nil
}

func (r *Interactions) FindSimilarUsers(ctx context.Context, userID string, limit int) ([]core.SimilarUser, error) {
	if err := r.enter(ctx, MethodFindSimilarUsers); err != nil {
		return nil, err
	}
	users := r.SimilarUsers[userID]
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return append([]core.SimilarUser(nil), users...), nil
}

func (r *Interactions) GetPopularProductsByUsers(ctx context.Context, _ []string, _ core.Action, limit int, productType string) ([]core.PopularProduct, error) {
	if err := r.enter(ctx, MethodGetPopularProductsByUsers); err != nil {
		return nil, err
	}
	out := make([]core.PopularProduct, 0, len(r.Popular))
	for _, p := range r.Popular {
		if productType != "" && p.ProductType != productType {
			continue
		}
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Interactions) GetTrendingProducts(ctx context.Context, days, limit int, productType string) ([]core.TrendingProduct, error) {
	if err := r.enter(ctx, MethodGetTrendingProducts); err != nil {
		return nil, err
	}
	src := r.Trending
	if byDays, ok := r.TrendingByDays[days]; ok {
		src = byDays
	}
	out := make([]core.TrendingProduct, 0, len(src))
	for _, t := range src {
		if productType != "" && r.ProductTypes[t.ProductID] != productType {
			continue
		}
		out = append(out, t)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Interactions) GetOrderItemGroups(ctx context.Context, limit int) ([]core.OrderItem, error) {
	if err := r.enter(ctx, MethodGetOrderItemGroups); err != nil {
		return nil, err
	}
	out := r.Orders
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]core.OrderItem(nil), out...), nil
}

// Catalog 是 core.CatalogRepository 的测试替身。
type Catalog struct {
	faults

	Products map[string]core.Product
	// Similar 指定近邻顺序；未设置时返回除自身外的所有商品（按 ID）
	Similar map[string][]string
	// Scores 两两相似度（0-100），未设置时为 DefaultScore
	Scores       map[[2]string]float64
	DefaultScore float64
}

var _ core.CatalogRepository = (*Catalog)(nil)

// NewCatalog 用商品列表创建 Catalog。
func NewCatalog(products ...core.Product) *Catalog {
	c := &Catalog{Products: make(map[string]core.Product, len(products)), DefaultScore: 50}
	for _, p := range products {
		c.Products[p.ID] = p
	}
	return c
}

// ProductTypes 返回商品 ID 到类型的映射，便于配置 Interactions.ProductTypes。
func (c *Catalog) ProductTypes() map[string]string {
	out := make(map[string]string, len(c.Products))
	for id, p := range c.Products {
		out[id] = p.ProductType
	}
	return out
}

func (c *Catalog) sortedIDs() []string {
	ids := make([]string, 0, len(c.Products))
	for id := range c.Products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Catalog) GetProductCatalogDetails(ctx context.Context, productIDs []string) ([]core.Product, error) {
	if err := c.enter(ctx, MethodGetProductCatalogDetails); err != nil {
		return nil, err
	}
	out := make([]core.Product, 0, len(productIDs))
	for _, id := range productIDs {
		if p, ok := c.Products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Catalog) FindSimilarProducts(ctx context.Context, productID string, limit int, sameTypeOnly bool) ([]core.Product, error) {
	if err := c.enter(ctx, MethodFindSimilarProducts); err != nil {
		return nil, err
	}
	seed := c.Products[productID]
	ids, ok := c.Similar[productID]
	if !ok {
		ids = c.sortedIDs()
	}
	out := make([]core.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := c.Products[id]
		if !ok || id == productID {
			continue
		}
		if sameTypeOnly && p.ProductType != seed.ProductType {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (c *Catalog) CalculateContentSimilarity(ctx context.Context, productA, productB string) (float64, error) {
	if err := c.enter(ctx, MethodCalculateContentSimilarity); err != nil {
		return 0, err
	}
	if v, ok := c.Scores[[2]string{productA, productB}]; ok {
		return v, nil
	}
	if v, ok := c.Scores[[2]string{productB, productA}]; ok {
		return v, nil
	}
	return c.DefaultScore, nil
}

func (c *Catalog) SearchProducts(ctx context.Context, q core.ProductQuery) ([]core.Product, error) {
	if err := c.enter(ctx, MethodSearchProducts); err != nil {
		return nil, err
	}
	cats := make(map[string]struct{}, len(q.Categories))
	for _, cat := range q.Categories {
		cats[cat] = struct{}{}
	}
	tags := make(map[string]struct{}, len(q.Tags))
	for _, t := range q.Tags {
		tags[t] = struct{}{}
	}
	out := make([]core.Product, 0)
	for _, id := range c.sortedIDs() {
		p := c.Products[id]
		if q.ProductType != "" && p.ProductType != q.ProductType {
			continue
		}
		match := false
		if _, ok := cats[p.Category]; ok {
			match = true
		}
		for _, t := range p.Tags {
			if _, ok := tags[t]; ok {
				match = true
			}
		}
		if match {
			out = append(out, p)
		}
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}
