// Package config 加载并校验 hybridrec 的配置。
//
// 加载顺序（后者覆盖前者）：结构体默认值 → YAML 文件 → 环境变量。
// 环境变量以 HYBRIDREC_ 开头，用双下划线分隔层级，例如
// HYBRIDREC_ENGINE__MIN_CONFIDENCE=0.4、HYBRIDREC_STORE__BACKEND=redis。
package config

import (
	"time"
)

// Config 是完整配置。
type Config struct {
	Engine     EngineConfig     `koanf:"engine" yaml:"engine"`
	Strategies StrategiesConfig `koanf:"strategies" yaml:"strategies"`
	Similarity SimilarityConfig `koanf:"similarity" yaml:"similarity"`
	Tracker    TrackerConfig    `koanf:"tracker" yaml:"tracker"`
	Store      StoreConfig      `koanf:"store" yaml:"store"`
	Breaker    BreakerConfig    `koanf:"breaker" yaml:"breaker"`
	Cache      CacheConfig      `koanf:"cache" yaml:"cache"`
	Blacklist  BlacklistConfig  `koanf:"blacklist" yaml:"blacklist"`
	Log        LogConfig        `koanf:"log" yaml:"log"`
}

// EngineConfig 是合并、过滤与截断相关的参数。MergeWeights 中未列出的策略权重为 1。
type EngineConfig struct {
	MinConfidence   float64            `koanf:"min_confidence" yaml:"min_confidence" validate:"gt=0,lte=1"`
	AgreementBonus  float64            `koanf:"agreement_bonus" yaml:"agreement_bonus" validate:"gte=0,lte=1"`
	DefaultLimit    int                `koanf:"default_limit" yaml:"default_limit" validate:"gte=1,ltefield=MaxLimit"`
	MaxLimit        int                `koanf:"max_limit" yaml:"max_limit" validate:"gte=1,lte=100"`
	StrategyTimeout time.Duration      `koanf:"strategy_timeout" yaml:"strategy_timeout" validate:"gte=100ms,lte=30s"`
	MaxConcurrent   int                `koanf:"max_concurrent" yaml:"max_concurrent" validate:"gte=0"`
	MergeWeights    map[string]float64 `koanf:"merge_weights" yaml:"merge_weights" validate:"dive,keys,oneof=behavioral collaborative content complementary trending,endkeys,gte=0"`
	KeepPurchased   bool               `koanf:"keep_purchased" yaml:"keep_purchased"`
	// RecentlyViewedLookback 排除最近浏览时额外读取的落库浏览数
	RecentlyViewedLookback int `koanf:"recently_viewed_lookback" yaml:"recently_viewed_lookback" validate:"gte=0"`
}

// StrategiesConfig 是各策略的开关与参数。
type StrategiesConfig struct {
	Behavioral    BehavioralConfig    `koanf:"behavioral" yaml:"behavioral"`
	Collaborative CollaborativeConfig `koanf:"collaborative" yaml:"collaborative"`
	Content       ContentConfig       `koanf:"content" yaml:"content"`
	Complementary ComplementaryConfig `koanf:"complementary" yaml:"complementary"`
	Trending      TrendingConfig      `koanf:"trending" yaml:"trending"`
	// TopKItems 单个策略产出的候选数
	TopKItems int `koanf:"top_k_items" yaml:"top_k_items" validate:"gte=1"`
}

type BehavioralConfig struct {
	Enabled          bool `koanf:"enabled" yaml:"enabled"`
	RecentViews      int  `koanf:"recent_views" yaml:"recent_views" validate:"gte=1"`
	NeighborsPerView int  `koanf:"neighbors_per_view" yaml:"neighbors_per_view" validate:"gte=1"`
	CrossType        bool `koanf:"cross_type" yaml:"cross_type"`
}

type CollaborativeConfig struct {
	Enabled          bool `koanf:"enabled" yaml:"enabled"`
	TopKSimilarUsers int  `koanf:"top_k_similar_users" yaml:"top_k_similar_users" validate:"gte=1"`
}

type ContentConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

type ComplementaryConfig struct {
	Enabled    bool `koanf:"enabled" yaml:"enabled"`
	OrderLimit int  `koanf:"order_limit" yaml:"order_limit" validate:"gte=1"`
}

type TrendingConfig struct {
	Enabled       bool `koanf:"enabled" yaml:"enabled"`
	WindowDays    int  `koanf:"window_days" yaml:"window_days" validate:"gte=1"`
	MaxWindowDays int  `koanf:"max_window_days" yaml:"max_window_days" validate:"gtefield=WindowDays"`
}

type SimilarityConfig struct {
	NeutralFallback float64 `koanf:"neutral_fallback" yaml:"neutral_fallback" validate:"gte=0,lte=5"`
	CandidatePool   int     `koanf:"candidate_pool" yaml:"candidate_pool" validate:"gte=1"`
}

type TrackerConfig struct {
	Buffer       int           `koanf:"buffer" yaml:"buffer" validate:"gte=1"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout" validate:"gt=0"`
}

type StoreConfig struct {
	Backend  string `koanf:"backend" yaml:"backend" validate:"oneof=memory redis"`
	Addr     string `koanf:"addr" yaml:"addr" validate:"required_if=Backend redis"`
	Password string `koanf:"password" yaml:"password"`
	DB       int    `koanf:"db" yaml:"db" validate:"gte=0"`
	Prefix   string `koanf:"prefix" yaml:"prefix"`
}

type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled" yaml:"enabled"`
	FailureThreshold uint32        `koanf:"failure_threshold" yaml:"failure_threshold" validate:"gte=1"`
	Timeout          time.Duration `koanf:"timeout" yaml:"timeout" validate:"gt=0"`
	Interval         time.Duration `koanf:"interval" yaml:"interval" validate:"gte=0"`
}

type CacheConfig struct {
	// CatalogSize 为 0 时不启用目录缓存
	CatalogSize int `koanf:"catalog_size" yaml:"catalog_size" validate:"gte=0"`
}

// BlacklistConfig 指定 Store 中黑名单的位置，Key 为空时不读取全局黑名单。
type BlacklistConfig struct {
	Key           string `koanf:"key" yaml:"key"`
	UserKeyPrefix string `koanf:"user_key_prefix" yaml:"user_key_prefix"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=json console"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MinConfidence:   0.3,
			AgreementBonus:  0.1,
			DefaultLimit:    10,
			MaxLimit:        20,
			StrategyTimeout: 3 * time.Second,
		},
		Strategies: StrategiesConfig{
			Behavioral:    BehavioralConfig{Enabled: true, RecentViews: 10, NeighborsPerView: 5},
			Collaborative: CollaborativeConfig{Enabled: true, TopKSimilarUsers: 50},
			Content:       ContentConfig{Enabled: true},
			Complementary: ComplementaryConfig{Enabled: true, OrderLimit: 1000},
			Trending:      TrendingConfig{Enabled: true, WindowDays: 7, MaxWindowDays: 30},
			TopKItems:     20,
		},
		Similarity: SimilarityConfig{NeutralFallback: 2.0, CandidatePool: 3},
		Tracker:    TrackerConfig{Buffer: 1024, WriteTimeout: 5 * time.Second},
		Store:      StoreConfig{Backend: "memory", Prefix: "hybridrec:"},
		Breaker: BreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			Timeout:          30 * time.Second,
			Interval:         time.Minute,
		},
		Cache: CacheConfig{CatalogSize: 4096},
		Blacklist: BlacklistConfig{
			Key:           "hybridrec:blacklist",
			UserKeyPrefix: "hybridrec:blocks",
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}
