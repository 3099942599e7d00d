package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
)

// Pipeline 把合并之后的处理拆成可组合的 Node 链：过滤 → 排序 → 截断 → 注解。
// 任一 Node 返回错误时整条链中止，由调用方决定是否降级。
type Pipeline struct {
	Nodes  []Node
	Logger zerolog.Logger
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendationContext,
	recs []*core.AggregatedRecommendation,
) ([]*core.AggregatedRecommendation, error) {
	cur := recs
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		before := len(cur)
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		p.Logger.Debug().
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", before).
			Int("out", len(next)).
			Dur("latency", time.Since(start)).
			Msg("pipeline node done")
		cur = next
	}
	return cur, nil
}
