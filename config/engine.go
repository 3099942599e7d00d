package config

import (
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/engine"
	"github.com/rushteam/hybridrec/repository"
)

// EngineSettings 把配置转换成 engine.Settings。
func (c *Config) EngineSettings() engine.Settings {
	s := engine.Settings{
		StrategyTimeout:         c.Engine.StrategyTimeout,
		MaxConcurrent:           c.Engine.MaxConcurrent,
		MinConfidence:           c.Engine.MinConfidence,
		AgreementBonus:          c.Engine.AgreementBonus,
		DefaultLimit:            c.Engine.DefaultLimit,
		MaxLimit:                c.Engine.MaxLimit,
		RecentViews:             c.Strategies.Behavioral.RecentViews,
		NeighborsPerView:        c.Strategies.Behavioral.NeighborsPerView,
		CrossType:               c.Strategies.Behavioral.CrossType,
		TopKSimilarUsers:        c.Strategies.Collaborative.TopKSimilarUsers,
		TopKItems:               c.Strategies.TopKItems,
		OrderLimit:              c.Strategies.Complementary.OrderLimit,
		TrendingWindowDays:      c.Strategies.Trending.WindowDays,
		TrendingMaxWindowDays:   c.Strategies.Trending.MaxWindowDays,
		SimilarityNeutral:       c.Similarity.NeutralFallback,
		SimilarityCandidatePool: c.Similarity.CandidatePool,
		RecentlyViewedLookback:  c.Engine.RecentlyViewedLookback,
		KeepPurchased:           c.Engine.KeepPurchased,
		BlacklistKey:            c.Blacklist.Key,
		UserBlockKeyPrefix:      c.Blacklist.UserKeyPrefix,
	}
	if len(c.Engine.MergeWeights) > 0 {
		s.Weights = make(map[core.Reason]float64, len(c.Engine.MergeWeights))
		for name, w := range c.Engine.MergeWeights {
			s.Weights[core.Reason(name)] = w
		}
	}

	enabled := map[core.Reason]bool{
		core.ReasonBehavioral:    c.Strategies.Behavioral.Enabled,
		core.ReasonCollaborative: c.Strategies.Collaborative.Enabled,
		core.ReasonContent:       c.Strategies.Content.Enabled,
		core.ReasonComplementary: c.Strategies.Complementary.Enabled,
		core.ReasonTrending:      c.Strategies.Trending.Enabled,
	}
	for _, reason := range core.AllReasons {
		if !enabled[reason] {
			s.Disabled = append(s.Disabled, reason)
		}
	}
	return s
}

// BreakerSettings 把配置转换成 repository.BreakerConfig。
func (c *Config) BreakerSettings() repository.BreakerConfig {
	cfg := repository.DefaultBreakerConfig()
	if c.Breaker.FailureThreshold > 0 {
		cfg.FailureThreshold = c.Breaker.FailureThreshold
	}
	if c.Breaker.Timeout > 0 {
		cfg.Timeout = c.Breaker.Timeout
	}
	cfg.Interval = c.Breaker.Interval
	return cfg
}
