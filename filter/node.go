package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该推荐就会被过滤掉。
type FilterNode struct {
	Filters []Filter
	Logger  zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendationContext,
	recs []*core.AggregatedRecommendation,
) ([]*core.AggregatedRecommendation, error) {
	if len(n.Filters) == 0 || len(recs) == 0 {
		return recs, nil
	}

	filters := make([]Filter, 0, len(n.Filters))
	for _, f := range n.Filters {
		p, ok := f.(Preparer)
		if !ok {
			filters = append(filters, f)
			continue
		}
		prepared, err := p.Prepare(ctx, rctx)
		if err != nil {
			n.Logger.Warn().Err(err).Str("filter", f.Name()).Msg("filter prepare failed, skipping")
			continue
		}
		if prepared != nil {
			filters = append(filters, prepared)
		}
	}

	out := make([]*core.AggregatedRecommendation, 0, len(recs))
	dropped := make(map[string]int)

	for _, rec := range recs {
		if rec == nil {
			continue
		}

		reason := ""
		for _, f := range filters {
			ok, err := f.ShouldFilter(ctx, rctx, rec)
			if err != nil {
				// 过滤器错误时记录但不中断流程
				n.Logger.Debug().Err(err).Str("filter", f.Name()).Str("product_id", rec.ProductID).Msg("filter error")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			dropped[reason]++
			continue
		}
		out = append(out, rec)
	}

	if len(dropped) > 0 {
		ev := n.Logger.Debug().Int("kept", len(out))
		for name, cnt := range dropped {
			ev = ev.Int(name, cnt)
		}
		ev.Msg("filtered recommendations")
	}
	return out, nil
}
