// Package engine 组装策略、合并器与过滤/排序链，对外提供 GenerateRecommendations 与 TrackUserBehavior。
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/metrics"
	"github.com/rushteam/hybridrec/pipeline"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/rerank"
	"github.com/rushteam/hybridrec/similarity"
	"github.com/rushteam/hybridrec/tracker"
)

// Engine 是混合推荐引擎。
//
// 引擎本身无状态：每次请求独立构造上下文副本，策略只读共享的仓储，
// 并发请求之间没有共享的可变状态。仓储通过构造函数注入，便于替换为测试替身。
type Engine struct {
	interactions core.InteractionRepository
	catalog      core.CatalogRepository

	settings  Settings
	logger    zerolog.Logger
	blacklist filter.BlacklistStore

	strategies []recall.Source
	trending   recall.Source
	general    recall.Source
	merger     *recall.Merger
	pipeline   *pipeline.Pipeline

	tracker      *tracker.Tracker
	ownsTracker  bool
	customSource bool
}

// Option 配置 Engine。
type Option func(*Engine)

// WithLogger 设置日志。
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSettings 设置引擎参数。
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithTracker 使用外部创建的 Tracker，引擎关闭时不会关闭它。
func WithTracker(t *tracker.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithBlacklistStore 启用基于存储的全局黑名单与用户拉黑列表。
func WithBlacklistStore(s filter.BlacklistStore) Option {
	return func(e *Engine) { e.blacklist = s }
}

// WithStrategies 替换个性化策略集合（默认五个策略）。热门兜底策略不受影响。
func WithStrategies(sources ...recall.Source) Option {
	return func(e *Engine) {
		e.strategies = sources
		e.customSource = true
	}
}

// New 创建引擎。interactions 与 catalog 为必填。
func New(interactions core.InteractionRepository, catalog core.CatalogRepository, opts ...Option) (*Engine, error) {
	if interactions == nil || catalog == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: interaction and catalog repositories are required")
	}
	e := &Engine{
		interactions: interactions,
		catalog:      catalog,
		settings:     DefaultSettings(),
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.settings = e.settings.withDefaults()
	e.logger = logging.Component(e.logger, "engine")

	s := e.settings
	finder := similarity.NewFinder(catalog, e.logger)
	if s.SimilarityNeutral > 0 {
		finder.NeutralFallback = s.SimilarityNeutral
	}
	if s.SimilarityCandidatePool > 0 {
		finder.CandidatePool = s.SimilarityCandidatePool
	}

	if !e.customSource {
		e.strategies = e.defaultStrategies(finder)
	}
	e.trending = &recall.Trending{
		Interactions:  interactions,
		WindowDays:    s.TrendingWindowDays,
		MaxWindowDays: s.TrendingMaxWindowDays,
		TopK:          s.TopKItems,
	}
	e.general = &recall.Trending{
		Interactions:  interactions,
		WindowDays:    s.TrendingWindowDays,
		MaxWindowDays: s.TrendingMaxWindowDays,
		TopK:          s.TopKItems,
		General:       true,
	}
	e.merger = &recall.Merger{Weights: s.Weights, AgreementBonus: s.AgreementBonus}
	e.pipeline = e.buildPipeline()

	if e.tracker == nil {
		t, err := tracker.New(interactions, tracker.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.tracker = t
		e.ownsTracker = true
	}
	return e, nil
}

func (e *Engine) defaultStrategies(finder *similarity.Finder) []recall.Source {
	s := e.settings
	all := []struct {
		reason core.Reason
		source recall.Source
	}{
		{core.ReasonBehavioral, &recall.Behavioral{
			Interactions:     e.interactions,
			Catalog:          e.catalog,
			Finder:           finder,
			RecentViews:      s.RecentViews,
			NeighborsPerView: s.NeighborsPerView,
			CrossType:        s.CrossType,
		}},
		{core.ReasonCollaborative, &recall.Collaborative{
			Interactions:     e.interactions,
			TopKSimilarUsers: s.TopKSimilarUsers,
			TopKItems:        s.TopKItems,
			MinConfidence:    s.MinConfidence,
		}},
		{core.ReasonContent, &recall.Content{
			Catalog: e.catalog,
			TopK:    s.TopKItems,
		}},
		{core.ReasonComplementary, &recall.Complementary{
			Interactions: e.interactions,
			OrderLimit:   s.OrderLimit,
			TopK:         s.TopKItems,
		}},
		{core.ReasonTrending, &recall.Trending{
			Interactions:  e.interactions,
			WindowDays:    s.TrendingWindowDays,
			MaxWindowDays: s.TrendingMaxWindowDays,
			TopK:          s.TopKItems,
		}},
	}
	out := make([]recall.Source, 0, len(all))
	for _, st := range all {
		if s.enabled(st.reason) {
			out = append(out, st.source)
		}
	}
	return out
}

// buildPipeline 顺序：置信度 → 最近浏览 → 黑名单/排除 → 表达式 → 类型约束 → 排序 → 截断 → 推荐理由。
func (e *Engine) buildPipeline() *pipeline.Pipeline {
	s := e.settings
	blacklist := &filter.BlacklistFilter{
		Store:            e.blacklist,
		ExcludePurchased: !s.KeepPurchased,
	}
	if e.blacklist != nil {
		blacklist.Key = s.BlacklistKey
		blacklist.UserKeyPrefix = s.UserBlockKeyPrefix
	}
	return &pipeline.Pipeline{
		Logger: e.logger,
		Nodes: []pipeline.Node{
			&filter.FilterNode{
				Logger: e.logger,
				Filters: []filter.Filter{
					&filter.ConfidenceFilter{Min: s.MinConfidence},
					&filter.RecentlyViewedFilter{Interactions: e.interactions, Lookback: s.RecentlyViewedLookback},
					blacklist,
					&filter.ExpressionFilter{},
				},
			},
			&filter.ProductTypeNode{Catalog: e.catalog, Logger: e.logger},
			&rerank.SortNode{},
			&rerank.TopNNode{N: s.DefaultLimit, Max: s.MaxLimit},
			&rerank.ReasoningNode{},
		},
	}
}

// Close 释放引擎持有的资源（自建的 Tracker）。
func (e *Engine) Close() error {
	if e.ownsTracker && e.tracker != nil {
		return e.tracker.Close()
	}
	return nil
}

// TrackUserBehavior 提交一条行为事件，立即返回；写入失败只记录日志。
func (e *Engine) TrackUserBehavior(ctx context.Context, event core.InteractionEvent) {
	e.tracker.Track(ctx, event)
}

// GenerateRecommendations 生成推荐。
//
// 对任何结构合法的上下文都不会返回业务错误：仓储故障、策略超时、
// 无效的商品 ID 都会降级为部分结果或热门兜底。
// 个性化策略全部为空时会再查一次通用热门，此时 Algorithm 为 "fallback"，
// Recommendations 可能是通用热门结果，也可能是空列表。
// 只有调用方取消 ctx 时返回 ctx.Err()，此时已得到的部分结果被丢弃。
func (e *Engine) GenerateRecommendations(ctx context.Context, rctx *core.RecommendationContext) (*core.RecommendationResult, error) {
	start := time.Now()
	rc := rctx.Clone()

	invalid := e.enrich(ctx, rc)

	algorithm := core.AlgorithmHybrid
	sources := e.strategies
	if invalid || !e.personalizable(ctx, rc) {
		algorithm = core.AlgorithmTrendingFallback
		sources = []recall.Source{e.trending}
	}

	recs, stats, err := e.run(ctx, rc, sources)
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		// 热门路径内部已经退回过通用热门，不再重复查询
		if algorithm == core.AlgorithmHybrid {
			fbRecs, fbStats, err := e.run(ctx, rc, []recall.Source{e.general})
			if err != nil {
				return nil, err
			}
			recs = fbRecs
			stats = append(stats, fbStats...)
		}
		algorithm = core.AlgorithmFallback
	}
	if recs == nil {
		recs = []*core.AggregatedRecommendation{}
	}

	elapsed := time.Since(start)
	metrics.RecordRequest(algorithm, elapsed)
	e.logger.Debug().
		Str("user_id", rc.UserID).
		Str("product_id", rc.ProductID).
		Str("algorithm", algorithm).
		Int("results", len(recs)).
		Dur("latency", elapsed).
		Msg("recommendations generated")

	return &core.RecommendationResult{
		Recommendations:  recs,
		Algorithm:        algorithm,
		ProcessingTimeMs: elapsed.Milliseconds(),
		ContextUsed:      contextUsed(rc),
		StrategyStats:    stats,
	}, nil
}

// run 执行 fan-out → 合并 → 过滤/排序链。
func (e *Engine) run(
	ctx context.Context,
	rc *core.RecommendationContext,
	sources []recall.Source,
) ([]*core.AggregatedRecommendation, []core.StrategyStat, error) {
	fan := &recall.Fanout{
		Sources:       sources,
		Timeout:       e.settings.StrategyTimeout,
		MaxConcurrent: e.settings.MaxConcurrent,
		Logger:        e.logger,
	}
	outcome := fan.Collect(ctx, rc)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	merged := e.merger.Merge(outcome.Candidates)
	recs, err := e.pipeline.Run(ctx, rc, merged)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		// 过滤/排序链本身不应失败；失败时放弃本轮结果，交给兜底
		e.logger.Error().Err(err).Msg("pipeline failed")
		return nil, outcome.Stats, nil
	}
	return recs, outcome.Stats, nil
}
