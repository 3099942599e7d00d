package repository

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/metrics"
)

// CachedCatalog 在 CatalogRepository 前面加一层进程内 LRU：
// 缓存商品详情与两两相似度，近邻与检索直接透传。
// 目录更新后需要调用 Invalidate，否则读到旧数据直到被淘汰。
type CachedCatalog struct {
	next     core.CatalogRepository
	products *lru.Cache[string, core.Product]
	pairs    *lru.Cache[[2]string, float64]
}

// NewCachedCatalog 创建带 LRU 的目录仓储，size 为商品详情缓存容量。
func NewCachedCatalog(next core.CatalogRepository, size int) (*CachedCatalog, error) {
	if size <= 0 {
		size = 4096
	}
	products, err := lru.New[string, core.Product](size)
	if err != nil {
		return nil, err
	}
	pairs, err := lru.New[[2]string, float64](size * 4)
	if err != nil {
		return nil, err
	}
	return &CachedCatalog{next: next, products: products, pairs: pairs}, nil
}

var _ core.CatalogRepository = (*CachedCatalog)(nil)

func (c *CachedCatalog) GetProductCatalogDetails(ctx context.Context, productIDs []string) ([]core.Product, error) {
	found := make(map[string]core.Product, len(productIDs))
	missing := make([]string, 0)
	for _, id := range productIDs {
		if p, ok := c.products.Get(id); ok {
			metrics.RecordCacheLookup(true)
			found[id] = p
			continue
		}
		metrics.RecordCacheLookup(false)
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		fetched, err := c.next.GetProductCatalogDetails(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, p := range fetched {
			c.products.Add(p.ID, p)
			found[p.ID] = p
		}
	}

	out := make([]core.Product, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, id := range productIDs {
		p, ok := found[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func (c *CachedCatalog) FindSimilarProducts(ctx context.Context, productID string, limit int, sameTypeOnly bool) ([]core.Product, error) {
	products, err := c.next.FindSimilarProducts(ctx, productID, limit, sameTypeOnly)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		c.products.Add(p.ID, p)
	}
	return products, nil
}

func (c *CachedCatalog) CalculateContentSimilarity(ctx context.Context, productA, productB string) (float64, error) {
	key := [2]string{productA, productB}
	if productB < productA {
		key = [2]string{productB, productA}
	}
	if v, ok := c.pairs.Get(key); ok {
		metrics.RecordCacheLookup(true)
		return v, nil
	}
	metrics.RecordCacheLookup(false)
	v, err := c.next.CalculateContentSimilarity(ctx, productA, productB)
	if err != nil {
		return 0, err
	}
	c.pairs.Add(key, v)
	return v, nil
}

func (c *CachedCatalog) SearchProducts(ctx context.Context, query core.ProductQuery) ([]core.Product, error) {
	return c.next.SearchProducts(ctx, query)
}

// Invalidate 清除某个商品的缓存详情；相似度缓存整体清空。
func (c *CachedCatalog) Invalidate(productID string) {
	c.products.Remove(productID)
	c.pairs.Purge()
}

// Len 返回当前缓存的商品数。
func (c *CachedCatalog) Len() int {
	return c.products.Len()
}
