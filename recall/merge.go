package recall

import (
	"sort"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
)

// Merger 把多个策略的候选按商品 ID 去重合并。
//
// 合并规则（唯一且固定）：
//   - 分数：各贡献策略分数的加权平均，权重来自 Weights，缺省为 1.0（即简单平均）
//   - 置信度：max(各策略置信度) + AgreementBonus × (贡献策略数 - 1)，上限 1.0
//   - 元信息：按策略固定顺序浅合并，并记录 ContributingStrategies
//
// 同一策略对同一商品的多次提名只取分数最高的一次。
type Merger struct {
	Weights        map[core.Reason]float64
	AgreementBonus float64
}

// NewMerger 创建使用默认一致奖励的 Merger。
func NewMerger(weights map[core.Reason]float64) *Merger {
	return &Merger{Weights: weights, AgreementBonus: core.AgreementBonus}
}

func (m *Merger) weight(reason core.Reason) float64 {
	if m == nil || m.Weights == nil {
		return 1.0
	}
	w, ok := m.Weights[reason]
	if !ok || w < 0 {
		return 1.0
	}
	return w
}

// Merge 合并候选，输出按商品 ID 升序，便于后续确定性排序。
func (m *Merger) Merge(cands []*core.Candidate) []*core.AggregatedRecommendation {
	if len(cands) == 0 {
		return nil
	}

	// productID -> reason -> best candidate
	grouped := make(map[string]map[core.Reason]*core.Candidate)
	for _, c := range cands {
		if c == nil || c.ProductID == "" {
			continue
		}
		byReason, ok := grouped[c.ProductID]
		if !ok {
			byReason = make(map[core.Reason]*core.Candidate, 2)
			grouped[c.ProductID] = byReason
		}
		old, ok := byReason[c.Reason]
		if !ok || c.Score > old.Score || (c.Score == old.Score && c.Confidence > old.Confidence) {
			byReason[c.Reason] = c
		}
	}

	bonus := core.AgreementBonus
	if m != nil && m.AgreementBonus >= 0 {
		bonus = m.AgreementBonus
	}

	out := make([]*core.AggregatedRecommendation, 0, len(grouped))
	for productID, byReason := range grouped {
		rec := core.NewAggregatedRecommendation(productID)

		var (
			weighted, weightSum, plainSum float64
			maxConf                       float64
			n                             int
		)
		for _, reason := range orderedReasons(byReason) {
			c := byReason[reason]
			w := m.weight(reason)
			weighted += w * c.Score
			weightSum += w
			plainSum += c.Score
			if c.Confidence > maxConf {
				maxConf = c.Confidence
			}
			n++

			rec.Reasons[reason] = struct{}{}
			rec.Metadata.Merge(c.Metadata)
			rec.PutLabel("recall_source", utils.Label{Value: string(reason), Source: "recall"})
		}

		if weightSum > 0 {
			rec.Score = weighted / weightSum
		} else {
			rec.Score = plainSum / float64(n)
		}
		rec.Confidence = clamp(maxConf+bonus*float64(n-1), 0, 1)
		if rec.Confidence < maxConf {
			rec.Confidence = maxConf
		}
		rec.Metadata.ContributingStrategies = n
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// orderedReasons 按 core.AllReasons 的顺序遍历，未知策略排在最后（按名称）。
func orderedReasons(byReason map[core.Reason]*core.Candidate) []core.Reason {
	out := make([]core.Reason, 0, len(byReason))
	known := make(map[core.Reason]struct{}, len(core.AllReasons))
	for _, r := range core.AllReasons {
		known[r] = struct{}{}
		if _, ok := byReason[r]; ok {
			out = append(out, r)
		}
	}
	extra := make([]core.Reason, 0)
	for r := range byReason {
		if _, ok := known[r]; !ok {
			extra = append(extra, r)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
