package rerank

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// SortNode 按 分数降序 → 置信度降序 → 商品 ID 升序 排序。
type SortNode struct{}

func (n *SortNode) Name() string {
	return "rank.sort"
}

func (n *SortNode) Kind() pipeline.Kind {
	return pipeline.KindRank
}

func (n *SortNode) Process(
	_ context.Context,
	_ *core.RecommendationContext,
	recs []*core.AggregatedRecommendation,
) ([]*core.AggregatedRecommendation, error) {
	core.SortRecommendations(recs)
	return recs, nil
}
