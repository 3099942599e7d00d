// Package hybridrec 是一个混合商品推荐引擎。
//
// 设计要点：
//   - 五个策略（行为相似、协同过滤、内容相似、搭配购买、热门）并发执行，各自独立超时与降级
//   - 候选按商品合并：分数加权平均，置信度取最大值并叠加多策略一致奖励
//   - 合并结果经过 过滤 → 类型约束 → 排序 → 截断 → 推荐理由 的 Pipeline
//   - 缺少个性化信号或上下文无效时回退到热门推荐，任何情况下都返回结果而不是错误
//
// 最小用法：
//
//	repo := repository.NewKV(store.NewMemoryStore())
//	eng, err := hybridrec.New(repo, repo)
//	res, err := eng.GenerateRecommendations(ctx, &hybridrec.Context{UserID: "u1"})
package hybridrec

import (
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/engine"
)

// 轻量 facade：便于直接 import "hybridrec" 使用核心类型。
type (
	Engine           = engine.Engine
	Option           = engine.Option
	Settings         = engine.Settings
	Context          = core.RecommendationContext
	Result           = core.RecommendationResult
	Recommendation   = core.AggregatedRecommendation
	InteractionEvent = core.InteractionEvent
)

// New 创建引擎，等同于 engine.New。
func New(interactions core.InteractionRepository, catalog core.CatalogRepository, opts ...Option) (*Engine, error) {
	return engine.New(interactions, catalog, opts...)
}
