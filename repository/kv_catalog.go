package repository

import (
	"context"
	"fmt"
	"math"
	"sort"

	json "github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"

	"github.com/rushteam/hybridrec/core"
)

// 内容向量中各类特征的权重。
const (
	featureCategory = 1.0
	featureType     = 0.5
	featureTag      = 1.0
)

// GetProductCatalogDetails 批量读取商品，不存在的 ID 被忽略，结果保持入参顺序。
func (r *KV) GetProductCatalogDetails(ctx context.Context, productIDs []string) ([]core.Product, error) {
	out := make([]core.Product, 0, len(productIDs))
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		p, ok, err := r.product(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *KV) product(ctx context.Context, id string) (core.Product, bool, error) {
	data, err := r.Store.HGet(ctx, r.key(keyCatalog), id)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return core.Product{}, false, nil
		}
		return core.Product{}, false, err
	}
	var p core.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return core.Product{}, false, fmt.Errorf("decode product %s: %w", id, err)
	}
	return p, true, nil
}

func (r *KV) allProducts(ctx context.Context) ([]core.Product, error) {
	raw, err := r.Store.HGetAll(ctx, r.key(keyCatalog))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]core.Product, 0, len(raw))
	for id, data := range raw {
		var p core.Product
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", id, err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindSimilarProducts 按内容向量的余弦相似度返回近邻，不含自身；相似度为 0 的商品不返回。
func (r *KV) FindSimilarProducts(ctx context.Context, productID string, limit int, sameTypeOnly bool) ([]core.Product, error) {
	seed, ok, err := r.product(ctx, productID)
	if err != nil || !ok {
		return nil, err
	}
	all, err := r.allProducts(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		p   core.Product
		sim float64
	}
	cands := make([]scored, 0, len(all))
	for _, p := range all {
		if p.ID == seed.ID {
			continue
		}
		if sameTypeOnly && p.ProductType != seed.ProductType {
			continue
		}
		if sim := contentCosine(seed, p); sim > 0 {
			cands = append(cands, scored{p: p, sim: sim})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].sim != cands[j].sim {
			return cands[i].sim > cands[j].sim
		}
		return cands[i].p.ID < cands[j].p.ID
	})
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]core.Product, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.p)
	}
	return out, nil
}

// CalculateContentSimilarity 返回两个商品内容向量的余弦相似度 × 100。
func (r *KV) CalculateContentSimilarity(ctx context.Context, productA, productB string) (float64, error) {
	a, okA, err := r.product(ctx, productA)
	if err != nil {
		return 0, err
	}
	b, okB, err := r.product(ctx, productB)
	if err != nil {
		return 0, err
	}
	if !okA || !okB {
		return 0, core.NewDomainError(core.ModuleRepository, core.ErrorCodeNotFound, "repository: product not found")
	}
	return contentCosine(a, b) * 100, nil
}

// SearchProducts 返回命中任一类目或任一标签的商品，命中越多越靠前。
func (r *KV) SearchProducts(ctx context.Context, q core.ProductQuery) ([]core.Product, error) {
	if len(q.Categories) == 0 && len(q.Tags) == 0 {
		return nil, nil
	}
	all, err := r.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	cats := make(map[string]struct{}, len(q.Categories))
	for _, c := range q.Categories {
		cats[c] = struct{}{}
	}
	tags := make(map[string]struct{}, len(q.Tags))
	for _, t := range q.Tags {
		tags[t] = struct{}{}
	}

	type hit struct {
		p    core.Product
		hits int
	}
	hits := make([]hit, 0)
	for _, p := range all {
		if q.ProductType != "" && p.ProductType != q.ProductType {
			continue
		}
		n := 0
		if _, ok := cats[p.Category]; ok {
			n++
		}
		for _, t := range p.Tags {
			if _, ok := tags[t]; ok {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, hit{p: p, hits: n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].hits > hits[j].hits })
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	out := make([]core.Product, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.p)
	}
	return out, nil
}

// contentCosine 把类目、类型、标签编码为稀疏特征，在两者的特征并集上计算余弦相似度。
func contentCosine(a, b core.Product) float64 {
	fa, fb := features(a), features(b)
	dims := make(map[string]int, len(fa)+len(fb))
	for k := range fa {
		dims[k] = len(dims)
	}
	for k := range fb {
		if _, ok := dims[k]; !ok {
			dims[k] = len(dims)
		}
	}
	if len(dims) == 0 {
		return 0
	}
	va, vb := make([]float64, len(dims)), make([]float64, len(dims))
	for k, w := range fa {
		va[dims[k]] = w
	}
	for k, w := range fb {
		vb[dims[k]] = w
	}
	na, nb := floats.Norm(va, 2), floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Min(floats.Dot(va, vb)/(na*nb), 1)
}

func features(p core.Product) map[string]float64 {
	f := make(map[string]float64, len(p.Tags)+2)
	if p.Category != "" {
		f["cat:"+p.Category] = featureCategory
	}
	if p.ProductType != "" {
		f["type:"+p.ProductType] = featureType
	}
	for _, t := range p.Tags {
		if t != "" {
			f["tag:"+t] = featureTag
		}
	}
	return f
}
