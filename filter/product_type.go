package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// ProductTypeNode 在 SameTypeOnly 且 ProductType 已知时，只保留同类型商品。
//
// 与普通过滤器不同，它是“软约束”：过滤结果为空时放弃过滤，原样返回，
// 不会仅因类型约束把结果清空。类型缺失的推荐会先从目录补齐；
// 目录不可用时无法确认类型的推荐视为不匹配。
type ProductTypeNode struct {
	Catalog core.CatalogRepository
	Logger  zerolog.Logger
}

func (n *ProductTypeNode) Name() string {
	return "filter.product_type"
}

func (n *ProductTypeNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *ProductTypeNode) Process(
	ctx context.Context,
	rctx *core.RecommendationContext,
	recs []*core.AggregatedRecommendation,
) ([]*core.AggregatedRecommendation, error) {
	if rctx == nil || !rctx.SameTypeOnly || rctx.ProductType == "" || len(recs) == 0 {
		return recs, nil
	}

	n.fillTypes(ctx, recs)

	out := make([]*core.AggregatedRecommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.Metadata.ProductType == rctx.ProductType {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		n.Logger.Debug().
			Str("product_type", rctx.ProductType).
			Int("candidates", len(recs)).
			Msg("type filter would empty the result, skipping")
		return recs, nil
	}
	return out, nil
}

func (n *ProductTypeNode) fillTypes(ctx context.Context, recs []*core.AggregatedRecommendation) {
	if n.Catalog == nil {
		return
	}
	missing := make([]string, 0)
	for _, rec := range recs {
		if rec.Metadata.ProductType == "" {
			missing = append(missing, rec.ProductID)
		}
	}
	if len(missing) == 0 {
		return
	}
	details, err := n.Catalog.GetProductCatalogDetails(ctx, missing)
	if err != nil {
		n.Logger.Warn().Err(err).Int("missing", len(missing)).Msg("fill product types failed")
		return
	}
	idx := core.ProductIndex(details)
	for _, rec := range recs {
		if p, ok := idx[rec.ProductID]; ok && rec.Metadata.ProductType == "" {
			rec.Metadata.ApplyProduct(p)
		}
	}
}
