package core

import "time"

// 引擎级常量。两套历史实现的阈值（0.1 / 0.3）与合并策略（平均 / 取最大）在这里统一：
// 阈值取 0.3，分数按策略权重加权平均，置信度取最大值并叠加多策略一致奖励。
// 所有值都可以通过 config 覆盖。
const (
	// MinConfidenceThreshold 低于该置信度的推荐会被丢弃
	MinConfidenceThreshold = 0.3

	// AgreementBonus 每多一个贡献策略，置信度增加的幅度
	AgreementBonus = 0.1

	// DefaultLimit 未指定 limit 时的返回数量
	DefaultLimit = 10

	// MaxLimit 返回数量的硬上限
	MaxLimit = 20

	// DefaultStrategyTimeout 单个策略的超时时间
	DefaultStrategyTimeout = 3 * time.Second

	// NeutralSimilarity 相似度查询失败时的中性回退值（0-5 量纲）
	NeutralSimilarity = 2.0

	// MaxSimilarity 相似度标量的上限（0-5 量纲）
	MaxSimilarity = 5.0
)

// 结果中 Algorithm 字段的取值。
const (
	AlgorithmHybrid           = "hybrid"
	AlgorithmTrendingFallback = "trending_fallback"
	AlgorithmFallback         = "fallback"
)

// RecallConfig 是策略相关的配置接口，用于提供默认值。
type RecallConfig interface {
	// DefaultTopKSimilarUsers 返回默认的相似用户数
	DefaultTopKSimilarUsers() int

	// DefaultTopKItems 返回单个策略默认产出的候选数
	DefaultTopKItems() int

	// DefaultRecentViews 返回行为策略默认考虑的最近浏览数
	DefaultRecentViews() int

	// DefaultTimeout 返回默认的超时时间
	DefaultTimeout() time.Duration
}

// DefaultRecallConfig 是默认的策略配置实现。
type DefaultRecallConfig struct{}

func (c *DefaultRecallConfig) DefaultTopKSimilarUsers() int {
	return 50
}

func (c *DefaultRecallConfig) DefaultTopKItems() int {
	return 20
}

func (c *DefaultRecallConfig) DefaultRecentViews() int {
	return 10
}

func (c *DefaultRecallConfig) DefaultTimeout() time.Duration {
	return DefaultStrategyTimeout
}
