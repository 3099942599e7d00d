// Package metrics 定义推荐引擎的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StrategyDuration 单个策略的执行耗时
	StrategyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hybridrec_strategy_duration_seconds",
			Help:    "Duration of a single recommendation strategy in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// StrategyFailures 策略失败次数（错误或超时），失败的策略按空结果处理
	StrategyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridrec_strategy_failures_total",
			Help: "Total number of strategy failures treated as empty results",
		},
		[]string{"strategy", "cause"},
	)

	// StrategyCandidates 策略产出的候选数
	StrategyCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridrec_strategy_candidates_total",
			Help: "Total number of raw candidates emitted per strategy",
		},
		[]string{"strategy"},
	)

	// RecommendationRequests 按算法路径统计请求数
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridrec_requests_total",
			Help: "Total number of recommendation requests by algorithm path",
		},
		[]string{"algorithm"},
	)

	// RecommendationDuration 一次推荐的总耗时
	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hybridrec_request_duration_seconds",
			Help:    "End-to-end recommendation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// TrackerEvents 行为上报结果：accepted / rejected / dropped / stored / failed
	TrackerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridrec_tracker_events_total",
			Help: "Total number of tracked interaction events by outcome",
		},
		[]string{"outcome"},
	)

	// BreakerStateChanges 熔断器状态变化
	BreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridrec_breaker_state_changes_total",
			Help: "Total number of repository circuit breaker state transitions",
		},
		[]string{"name", "to"},
	)

	// CatalogCacheLookups 商品目录缓存命中情况
	CatalogCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridrec_catalog_cache_lookups_total",
			Help: "Total number of catalog cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordStrategy 记录一次策略执行。cause 为空表示成功。
func RecordStrategy(strategy string, duration time.Duration, candidates int, cause string) {
	StrategyDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if cause != "" {
		StrategyFailures.WithLabelValues(strategy, cause).Inc()
		return
	}
	StrategyCandidates.WithLabelValues(strategy).Add(float64(candidates))
}

// RecordRequest 记录一次推荐请求。
func RecordRequest(algorithm string, duration time.Duration) {
	RecommendationRequests.WithLabelValues(algorithm).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordTracker 记录一次行为上报结果。
func RecordTracker(outcome string) {
	TrackerEvents.WithLabelValues(outcome).Inc()
}

// RecordBreakerState 记录熔断器状态变化。
func RecordBreakerState(name, to string) {
	BreakerStateChanges.WithLabelValues(name, to).Inc()
}

// RecordCacheLookup 记录目录缓存命中/未命中。
func RecordCacheLookup(hit bool) {
	if hit {
		CatalogCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CatalogCacheLookups.WithLabelValues("miss").Inc()
}
