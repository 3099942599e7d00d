package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

func rec(id string, score, conf float64, reasons ...core.Reason) *core.AggregatedRecommendation {
	r := core.NewAggregatedRecommendation(id)
	r.Score = score
	r.Confidence = conf
	for _, reason := range reasons {
		r.Reasons[reason] = struct{}{}
	}
	return r
}

func TestTopNNode(t *testing.T) {
	recs := make([]*core.AggregatedRecommendation, 0, 30)
	for i := 0; i < 30; i++ {
		recs = append(recs, rec(string(rune('A'+i)), float64(30-i), 0.5))
	}

	tests := []struct {
		name  string
		node  *TopNNode
		limit int
		want  int
	}{
		{"request limit", &TopNNode{}, 3, 3},
		{"default limit", &TopNNode{}, 0, core.DefaultLimit},
		{"node default", &TopNNode{N: 5}, 0, 5},
		{"hard cap", &TopNNode{}, 100, core.MaxLimit},
		{"custom cap", &TopNNode{Max: 4}, 10, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.node.Process(context.Background(), &core.RecommendationContext{Limit: tt.limit}, recs)
			require.NoError(t, err)
			assert.Len(t, out, tt.want)
			assert.Equal(t, "A", out[0].ProductID)
		})
	}

	out, err := (&TopNNode{}).Process(context.Background(), &core.RecommendationContext{Limit: 5}, recs[:2])
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestSortNode(t *testing.T) {
	out, err := (&SortNode{}).Process(context.Background(), nil, []*core.AggregatedRecommendation{
		rec("B", 1, 0.5), rec("A", 1, 0.5), rec("C", 2, 0.3), rec("D", 1, 0.9),
	})
	require.NoError(t, err)
	ids := make([]string, 0, len(out))
	for _, r := range out {
		ids = append(ids, r.ProductID)
	}
	assert.Equal(t, []string{"C", "D", "A", "B"}, ids)
}

// TestExplain 测试每个策略的推荐理由文本
func TestExplain(t *testing.T) {
	behavioral := rec("P2", 1, 0.8, core.ReasonBehavioral)
	behavioral.Metadata.Behavioral = &core.BehavioralMeta{SourceProductID: "P1"}
	assert.Equal(t, "Similar to P1 you viewed recently", Explain(behavioral, "; "))

	collab := rec("P3", 1, 0.456, core.ReasonCollaborative)
	assert.Equal(t, "46% of similar users bought this", Explain(collab, "; "))

	content := rec("P4", 1, 0.7, core.ReasonContent)
	content.Metadata.Content = &core.ContentMeta{MatchedTags: []string{"running", "trail"}}
	assert.Equal(t, "Matches your interest in running, trail", Explain(content, "; "))

	comp := rec("P5", 1, 0.7, core.ReasonComplementary)
	comp.Metadata.Complementary = &core.ComplementaryMeta{SeedProductID: "P1"}
	assert.Equal(t, "Frequently bought together with P1", Explain(comp, "; "))

	trending := rec("P6", 1, 0.7, core.ReasonTrending)
	trending.Metadata.Category = "shoes"
	trending.Metadata.Trending = &core.TrendingMeta{Personalized: true}
	assert.Equal(t, "Trending in shoes", Explain(trending, "; "))
	trending.Metadata.Trending.Personalized = false
	assert.Equal(t, "Popular right now", Explain(trending, "; "))

	multi := rec("P7", 1, 0.9, core.ReasonTrending, core.ReasonCollaborative)
	assert.Equal(t, "90% of similar users bought this | Popular right now", Explain(multi, " | "))
}

// TestReasoningNodeDoesNotReorder 测试推荐理由不改变分数、置信度与顺序
func TestReasoningNodeDoesNotReorder(t *testing.T) {
	recs := []*core.AggregatedRecommendation{
		rec("B", 2, 0.6, core.ReasonTrending),
		rec("A", 1, 0.9, core.ReasonCollaborative),
	}
	node := &ReasoningNode{}

	out, err := node.Process(context.Background(), &core.RecommendationContext{}, recs)
	require.NoError(t, err)
	assert.Empty(t, out[0].Reasoning)

	out, err = node.Process(context.Background(), &core.RecommendationContext{IncludeReasoning: true}, recs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "B", out[0].ProductID)
	assert.Equal(t, 2.0, out[0].Score)
	assert.Equal(t, 0.6, out[0].Confidence)
	assert.Equal(t, "Popular right now", out[0].Reasoning)
	assert.Equal(t, "90% of similar users bought this", out[1].Reasoning)
}
