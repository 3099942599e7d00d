// Package similarity 提供同类型约束的近邻商品查找，以及两两商品的内容相似度标量。
package similarity

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
)

// Neighbor 是一个近邻商品及其相似度（0-5 量纲）。
type Neighbor struct {
	Product    core.Product
	Similarity float64
}

// Finder 基于 CatalogRepository 查找相似商品。
//
// 同类型约束：sameTypeOnly 时先按种子商品的 ProductType 过滤候选，再排序，
// 避免数字商品与实物商品互相推荐这类跨类目噪声。
type Finder struct {
	Catalog core.CatalogRepository
	Logger  zerolog.Logger

	// CandidatePool 向目录请求的候选倍数（limit × CandidatePool），过滤后仍能凑够 limit
	CandidatePool int

	// NeutralFallback 相似度查询失败时的回退值，默认 core.NeutralSimilarity
	NeutralFallback float64

	// MaxConcurrent 计算相似度标量时的并发上限
	MaxConcurrent int
}

// NewFinder 创建 Finder。
//
//nolint:gocritic // zerolog.Logger 按值传递
func NewFinder(catalog core.CatalogRepository, logger zerolog.Logger) *Finder {
	return &Finder{
		Catalog:         catalog,
		Logger:          logger.With().Str("component", "similarity").Logger(),
		CandidatePool:   3,
		NeutralFallback: core.NeutralSimilarity,
		MaxConcurrent:   8,
	}
}

// Similarity 返回两个商品的内容相似度，外部 [0,100] 归一化到 [0,5]。
// 查询失败时返回中性回退值，不向上传播错误。
func (f *Finder) Similarity(ctx context.Context, productA, productB string) float64 {
	fallback := f.NeutralFallback
	if fallback <= 0 {
		fallback = core.NeutralSimilarity
	}
	if f.Catalog == nil || productA == "" || productB == "" {
		return fallback
	}
	raw, err := f.Catalog.CalculateContentSimilarity(ctx, productA, productB)
	if err != nil {
		f.Logger.Debug().Err(err).
			Str("product_a", productA).
			Str("product_b", productB).
			Msg("content similarity lookup failed, using neutral fallback")
		return fallback
	}
	return normalize(raw)
}

// FindSimilar 返回与 productID 最相似的至多 limit 个商品（不含自身），按相似度降序、商品 ID 升序。
func (f *Finder) FindSimilar(ctx context.Context, productID string, limit int, sameTypeOnly bool) ([]Neighbor, error) {
	if f.Catalog == nil || productID == "" || limit <= 0 {
		return nil, nil
	}

	pool := f.CandidatePool
	if pool <= 0 {
		pool = 1
	}
	products, err := f.Catalog.FindSimilarProducts(ctx, productID, limit*pool, sameTypeOnly)
	if err != nil {
		return nil, core.ErrRepositoryUnavailable("find similar products", err)
	}

	if sameTypeOnly {
		seedType, err := f.productType(ctx, productID)
		if err != nil {
			return nil, err
		}
		products = filterByType(products, seedType)
	}

	neighbors := make([]Neighbor, 0, len(products))
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.ID == productID || p.ID == "" {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		neighbors = append(neighbors, Neighbor{Product: p})
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	f.score(ctx, productID, neighbors)

	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].Product.ID < neighbors[j].Product.ID
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

// score 并发计算每个近邻的相似度标量，单个失败只会得到回退值。
func (f *Finder) score(ctx context.Context, seed string, neighbors []Neighbor) {
	eg, egCtx := errgroup.WithContext(ctx)
	if f.MaxConcurrent > 0 {
		eg.SetLimit(f.MaxConcurrent)
	}
	for i := range neighbors {
		eg.Go(func() error {
			neighbors[i].Similarity = f.Similarity(egCtx, seed, neighbors[i].Product.ID)
			return nil
		})
	}
	_ = eg.Wait()
}

func (f *Finder) productType(ctx context.Context, productID string) (string, error) {
	details, err := f.Catalog.GetProductCatalogDetails(ctx, []string{productID})
	if err != nil {
		return "", core.ErrRepositoryUnavailable("get product details", err)
	}
	for _, d := range details {
		if d.ID == productID {
			return d.ProductType, nil
		}
	}
	return "", nil
}

// filterByType 只保留与种子类型相同的商品；种子类型未知时不过滤。
func filterByType(products []core.Product, productType string) []core.Product {
	if productType == "" {
		return products
	}
	out := make([]core.Product, 0, len(products))
	for _, p := range products {
		if p.ProductType == productType {
			out = append(out, p)
		}
	}
	return out
}

func normalize(raw float64) float64 {
	if raw < 0 {
		raw = 0
	}
	if raw > 100 {
		raw = 100
	}
	return raw / 100 * core.MaxSimilarity
}
