package recall

import (
	"context"
	"sort"

	"github.com/rushteam/hybridrec/core"
)

// Source 表示一个可复用的推荐策略（行为/协同/内容/搭配/热门）。
// 你可以把它理解为“可并发 fan-out 的策略单元”：只读、无副作用，
// 返回错误时由 Fanout 记录日志并按空结果处理。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendationContext) ([]*core.Candidate, error)
}

var defaults core.RecallConfig = &core.DefaultRecallConfig{}

// typeConstraint 返回上下文要求的商品类型，未要求时为空。
func typeConstraint(rctx *core.RecommendationContext) string {
	if rctx != nil && rctx.SameTypeOnly {
		return rctx.ProductType
	}
	return ""
}

// keepBest 同一策略内按商品去重，保留分数最高（其次置信度最高）的候选，输出按分数降序、商品 ID 升序。
func keepBest(cands []*core.Candidate) []*core.Candidate {
	best := make(map[string]*core.Candidate, len(cands))
	for _, c := range cands {
		if c == nil || c.ProductID == "" {
			continue
		}
		old, ok := best[c.ProductID]
		if !ok || c.Score > old.Score || (c.Score == old.Score && c.Confidence > old.Confidence) {
			best[c.ProductID] = c
		}
	}
	out := make([]*core.Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// truncate 截取前 n 个，n<=0 不截断。
func truncate(cands []*core.Candidate, n int) []*core.Candidate {
	if n > 0 && len(cands) > n {
		return cands[:n]
	}
	return cands
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
