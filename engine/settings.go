package engine

import (
	"time"

	"github.com/rushteam/hybridrec/core"
)

// Settings 汇总引擎的可调参数。零值字段使用默认值。
type Settings struct {
	// StrategyTimeout 单个策略的超时时间
	StrategyTimeout time.Duration
	// MaxConcurrent 策略并发上限，0 表示不限
	MaxConcurrent int

	MinConfidence  float64
	AgreementBonus float64
	DefaultLimit   int
	MaxLimit       int

	// Weights 合并时各策略的分数权重，缺省为 1.0
	Weights map[core.Reason]float64
	// Disabled 关闭的策略
	Disabled []core.Reason

	RecentViews           int
	NeighborsPerView      int
	CrossType             bool
	TopKSimilarUsers      int
	TopKItems             int
	OrderLimit            int
	TrendingWindowDays    int
	TrendingMaxWindowDays int

	// SimilarityNeutral 相似度查询失败时的回退值（0-5）
	SimilarityNeutral float64
	// SimilarityCandidatePool 近邻查询时向目录多取的倍数
	SimilarityCandidatePool int

	// RecentlyViewedLookback 排除最近浏览时，额外读取的落库浏览条数
	RecentlyViewedLookback int
	// KeepPurchased 为 true 时不排除用户已购商品
	KeepPurchased bool

	// BlacklistKey / UserBlockKeyPrefix 在配置了 BlacklistStore 时生效
	BlacklistKey       string
	UserBlockKeyPrefix string
}

// DefaultSettings 返回默认参数。
func DefaultSettings() Settings {
	return Settings{
		StrategyTimeout:       core.DefaultStrategyTimeout,
		MinConfidence:         core.MinConfidenceThreshold,
		AgreementBonus:        core.AgreementBonus,
		DefaultLimit:          core.DefaultLimit,
		MaxLimit:              core.MaxLimit,
		RecentViews:           10,
		NeighborsPerView:      5,
		TopKSimilarUsers:      50,
		TopKItems:             20,
		OrderLimit:            1000,
		TrendingWindowDays:    7,
		TrendingMaxWindowDays: 30,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.StrategyTimeout <= 0 {
		s.StrategyTimeout = d.StrategyTimeout
	}
	if s.MinConfidence <= 0 {
		s.MinConfidence = d.MinConfidence
	}
	if s.AgreementBonus <= 0 {
		s.AgreementBonus = d.AgreementBonus
	}
	if s.MaxLimit <= 0 {
		s.MaxLimit = d.MaxLimit
	}
	if s.DefaultLimit <= 0 {
		s.DefaultLimit = d.DefaultLimit
	}
	if s.DefaultLimit > s.MaxLimit {
		s.DefaultLimit = s.MaxLimit
	}
	if s.RecentViews <= 0 {
		s.RecentViews = d.RecentViews
	}
	if s.NeighborsPerView <= 0 {
		s.NeighborsPerView = d.NeighborsPerView
	}
	if s.TopKSimilarUsers <= 0 {
		s.TopKSimilarUsers = d.TopKSimilarUsers
	}
	if s.TopKItems <= 0 {
		s.TopKItems = d.TopKItems
	}
	if s.OrderLimit <= 0 {
		s.OrderLimit = d.OrderLimit
	}
	if s.TrendingWindowDays <= 0 {
		s.TrendingWindowDays = d.TrendingWindowDays
	}
	if s.TrendingMaxWindowDays < s.TrendingWindowDays {
		s.TrendingMaxWindowDays = max(d.TrendingMaxWindowDays, s.TrendingWindowDays)
	}
	return s
}

func (s Settings) enabled(reason core.Reason) bool {
	for _, r := range s.Disabled {
		if r == reason {
			return false
		}
	}
	return true
}
