package rerank

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pipeline"
)

// ReasoningNode 在请求 IncludeReasoning 时为每条推荐生成可读的推荐理由。
// 只写 Reasoning 字段，不改变分数、置信度与顺序。相同输入总是得到相同文本。
type ReasoningNode struct {
	// Separator 多个理由之间的分隔符，默认 "; "
	Separator string
}

func (n *ReasoningNode) Name() string {
	return "annotate.reasoning"
}

func (n *ReasoningNode) Kind() pipeline.Kind {
	return pipeline.KindAnnotate
}

func (n *ReasoningNode) Process(
	_ context.Context,
	rctx *core.RecommendationContext,
	recs []*core.AggregatedRecommendation,
) ([]*core.AggregatedRecommendation, error) {
	if rctx == nil || !rctx.IncludeReasoning {
		return recs, nil
	}
	sep := n.Separator
	if sep == "" {
		sep = "; "
	}
	for _, rec := range recs {
		rec.Reasoning = Explain(rec, sep)
	}
	return recs, nil
}

// Explain 按固定的策略顺序把每个贡献策略翻译成一句话。
func Explain(rec *core.AggregatedRecommendation, sep string) string {
	parts := make([]string, 0, len(rec.Reasons))
	for _, reason := range rec.ReasonList() {
		if s := explainReason(reason, rec); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func explainReason(reason core.Reason, rec *core.AggregatedRecommendation) string {
	md := rec.Metadata
	switch reason {
	case core.ReasonBehavioral:
		if md.Behavioral != nil && md.Behavioral.SourceProductID != "" {
			return fmt.Sprintf("Similar to %s you viewed recently", md.Behavioral.SourceProductID)
		}
		return "Similar to products you viewed recently"
	case core.ReasonCollaborative:
		return fmt.Sprintf("%d%% of similar users bought this", percent(rec.Confidence))
	case core.ReasonContent:
		if md.Content != nil && len(md.Content.MatchedTags) > 0 {
			return fmt.Sprintf("Matches your interest in %s", strings.Join(md.Content.MatchedTags, ", "))
		}
		if md.Category != "" {
			return fmt.Sprintf("Matches your interest in %s", md.Category)
		}
		return "Matches your interests"
	case core.ReasonComplementary:
		if md.Complementary != nil && md.Complementary.SeedProductID != "" {
			return fmt.Sprintf("Frequently bought together with %s", md.Complementary.SeedProductID)
		}
		return "Frequently bought together"
	case core.ReasonTrending:
		if md.Trending != nil && md.Trending.Personalized && md.Category != "" {
			return fmt.Sprintf("Trending in %s", md.Category)
		}
		return "Popular right now"
	default:
		return ""
	}
}

func percent(v float64) int {
	return int(math.Round(math.Min(math.Max(v, 0), 1) * 100))
}
