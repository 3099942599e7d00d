package core

import "time"

// StrategyStat 记录单个策略在一次请求中的执行情况。
type StrategyStat struct {
	Name       string        `json:"name"`
	Candidates int           `json:"candidates"`
	Latency    time.Duration `json:"latency"`
	Failed     bool          `json:"failed,omitempty"`
}

// RecommendationResult 是 GenerateRecommendations 的返回值。
type RecommendationResult struct {
	Recommendations  []*AggregatedRecommendation `json:"recommendations"`
	Algorithm        string                      `json:"algorithm"`
	ProcessingTimeMs int64                       `json:"processing_time_ms"`
	ContextUsed      []string                    `json:"context_used"`
	StrategyStats    []StrategyStat              `json:"strategy_stats,omitempty"`
}

// ProductIDs 返回结果中的商品 ID 列表（按顺序）。
func (r *RecommendationResult) ProductIDs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		out = append(out, rec.ProductID)
	}
	return out
}
