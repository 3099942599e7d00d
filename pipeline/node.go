package pipeline

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// Kind 用于标记 Node 类型，方便按阶段打点与排查。
type Kind string

const (
	KindFilter   Kind = "filter"   // 过滤阶段：剔除不满足约束的推荐
	KindRank     Kind = "rank"     // 排序阶段：确定性排序
	KindReRank   Kind = "rerank"   // 重排阶段：截断、调整顺序
	KindAnnotate Kind = "annotate" // 注解阶段：只补充可读信息，不改变顺序与分数
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入合并结果 -> 输出合并结果”的形态；召回阶段在 Pipeline 之前由 recall.Fanout 完成。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendationContext,
		recs []*core.AggregatedRecommendation,
	) ([]*core.AggregatedRecommendation, error)
}

// NodeFunc 把普通函数包装成 Node，便于测试和临时规则。
type NodeFunc struct {
	NodeName string
	NodeKind Kind
	Fn       func(ctx context.Context, rctx *core.RecommendationContext, recs []*core.AggregatedRecommendation) ([]*core.AggregatedRecommendation, error)
}

func (f NodeFunc) Name() string { return f.NodeName }
func (f NodeFunc) Kind() Kind   { return f.NodeKind }

func (f NodeFunc) Process(
	ctx context.Context,
	rctx *core.RecommendationContext,
	recs []*core.AggregatedRecommendation,
) ([]*core.AggregatedRecommendation, error) {
	return f.Fn(ctx, rctx, recs)
}
