package core

import (
	"sort"

	"github.com/rushteam/hybridrec/pkg/utils"
)

// Reason 标识产出候选的策略。
type Reason string

const (
	ReasonBehavioral    Reason = "behavioral"
	ReasonCollaborative Reason = "collaborative"
	ReasonContent       Reason = "content"
	ReasonComplementary Reason = "complementary"
	ReasonTrending      Reason = "trending"
)

// AllReasons 按固定顺序列出全部策略，用于确定性的输出。
var AllReasons = []Reason{
	ReasonBehavioral,
	ReasonCollaborative,
	ReasonContent,
	ReasonComplementary,
	ReasonTrending,
}

// BehavioralMeta 行为相似策略的附加信息。
type BehavioralMeta struct {
	SourceProductID string  `json:"source_product_id"`
	Similarity      float64 `json:"similarity"` // 0-5
}

// CollaborativeMeta 协同过滤策略的附加信息。
type CollaborativeMeta struct {
	Frequency        int `json:"frequency"`
	SimilarUserCount int `json:"similar_user_count"`
}

// ContentMeta 内容相似策略的附加信息。
type ContentMeta struct {
	CategoryMatchRatio float64  `json:"category_match_ratio"`
	TagOverlapRatio    float64  `json:"tag_overlap_ratio"`
	MatchedTags        []string `json:"matched_tags,omitempty"`
}

// ComplementaryMeta 搭配购买策略的附加信息。
type ComplementaryMeta struct {
	SeedProductID string `json:"seed_product_id"`
	Frequency     int    `json:"frequency"`
}

// TrendingMeta 热门策略的附加信息。
type TrendingMeta struct {
	TrendScore   float64 `json:"trend_score"`
	WindowDays   int     `json:"window_days"`
	Personalized bool    `json:"personalized"`
}

// Metadata 是候选/推荐结果的结构化元信息。
// 通用字段在任何策略下都可能出现；每个策略只填充自己的分段，其余为 nil。
type Metadata struct {
	Category    string   `json:"category,omitempty"`
	ProductType string   `json:"product_type,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	Behavioral    *BehavioralMeta    `json:"behavioral,omitempty"`
	Collaborative *CollaborativeMeta `json:"collaborative,omitempty"`
	Content       *ContentMeta       `json:"content,omitempty"`
	Complementary *ComplementaryMeta `json:"complementary,omitempty"`
	Trending      *TrendingMeta      `json:"trending,omitempty"`

	// ContributingStrategies 合并后参与贡献的策略数
	ContributingStrategies int `json:"contributing_strategies,omitempty"`
}

// Merge 浅合并：incoming 中非零字段覆盖空字段，策略分段以先到者为准。
func (m *Metadata) Merge(incoming Metadata) {
	if m.Category == "" {
		m.Category = incoming.Category
	}
	if m.ProductType == "" {
		m.ProductType = incoming.ProductType
	}
	if m.Price == 0 {
		m.Price = incoming.Price
	}
	if len(m.Tags) == 0 {
		m.Tags = incoming.Tags
	}
	if m.Behavioral == nil {
		m.Behavioral = incoming.Behavioral
	}
	if m.Collaborative == nil {
		m.Collaborative = incoming.Collaborative
	}
	if m.Content == nil {
		m.Content = incoming.Content
	}
	if m.Complementary == nil {
		m.Complementary = incoming.Complementary
	}
	if m.Trending == nil {
		m.Trending = incoming.Trending
	}
}

// ApplyProduct 使用商品详情补齐通用字段。
func (m *Metadata) ApplyProduct(p Product) {
	m.Merge(Metadata{
		Category:    p.Category,
		ProductType: p.ProductType,
		Price:       p.Price,
		Tags:        p.Tags,
	})
}

// Candidate 是单个策略对某个商品的打分提议（合并前）。
// Score 处于策略自身的量纲上，Confidence 在 [0,1] 区间。
type Candidate struct {
	ProductID  string
	Score      float64
	Reason     Reason
	Confidence float64
	Metadata   Metadata
}

// AggregatedRecommendation 是跨策略合并后的推荐单元，每个商品只出现一次。
// 不变量：Confidence 不低于任何单个贡献策略的置信度。
type AggregatedRecommendation struct {
	ProductID  string
	Score      float64
	Confidence float64
	Reasons    map[Reason]struct{}
	Metadata   Metadata

	// Reasoning 可读的推荐理由，仅在请求 IncludeReasoning 时填充
	Reasoning string

	// Labels 用于解释与观测（recall_source 等）
	Labels map[string]utils.Label
}

// NewAggregatedRecommendation 创建一个空的合并结果。
func NewAggregatedRecommendation(productID string) *AggregatedRecommendation {
	return &AggregatedRecommendation{
		ProductID: productID,
		Reasons:   make(map[Reason]struct{}),
		Labels:    make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (r *AggregatedRecommendation) PutLabel(key string, lbl utils.Label) {
	if r.Labels == nil {
		r.Labels = make(map[string]utils.Label)
	}
	if old, ok := r.Labels[key]; ok {
		r.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	r.Labels[key] = lbl
}

// HasReason 判断是否由某个策略贡献。
func (r *AggregatedRecommendation) HasReason(reason Reason) bool {
	_, ok := r.Reasons[reason]
	return ok
}

// ReasonList 按 AllReasons 的固定顺序返回贡献策略。
func (r *AggregatedRecommendation) ReasonList() []Reason {
	out := make([]Reason, 0, len(r.Reasons))
	for _, reason := range AllReasons {
		if _, ok := r.Reasons[reason]; ok {
			out = append(out, reason)
		}
	}
	return out
}

// SortRecommendations 按 分数降序 → 置信度降序 → 商品 ID 升序 排序，保证结果确定。
func SortRecommendations(recs []*AggregatedRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ProductID < b.ProductID
	})
}
