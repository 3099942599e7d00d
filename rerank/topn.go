package rerank

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序后截取前 N 个推荐。
//
// N 的取值顺序：
//   - 请求的 Limit（>0 时）
//   - 节点的 N（>0 时）
//   - core.DefaultLimit
//
// 最终结果不超过 Max（<=0 时为 core.MaxLimit）。
//
// 示例：
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &filter.FilterNode{...},  // 过滤
//	        &rerank.SortNode{},       // 排序
//	        &rerank.TopNNode{N: 10},  // 截断
//	    },
//	}
type TopNNode struct {
	N   int
	Max int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) limit(rctx *core.RecommendationContext) int {
	def := n.N
	if def <= 0 {
		def = core.DefaultLimit
	}
	maxLimit := n.Max
	if maxLimit <= 0 {
		maxLimit = core.MaxLimit
	}
	return rctx.EffectiveLimit(def, maxLimit)
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendationContext,
	recs []*core.AggregatedRecommendation,
) ([]*core.AggregatedRecommendation, error) {
	limit := n.limit(rctx)
	if len(recs) <= limit {
		return recs, nil
	}
	return recs[:limit], nil
}
