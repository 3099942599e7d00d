package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// ConfidenceFilter 丢弃置信度低于 Min 的推荐。Min<=0 时使用 core.MinConfidenceThreshold。
type ConfidenceFilter struct {
	Min float64
}

func (f *ConfidenceFilter) Name() string {
	return "filter.confidence"
}

func (f *ConfidenceFilter) threshold() float64 {
	if f.Min <= 0 {
		return core.MinConfidenceThreshold
	}
	return f.Min
}

func (f *ConfidenceFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendationContext,
	rec *core.AggregatedRecommendation,
) (bool, error) {
	return rec.Confidence < f.threshold(), nil
}
