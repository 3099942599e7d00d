package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// Filter 是过滤器的抽象接口，用于判断一条推荐是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 rec 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendationContext, rec *core.AggregatedRecommendation) (bool, error)
}

// Preparer 是可选接口：过滤器在处理一批推荐前做一次准备（例如把排除列表读成集合）。
// 准备失败时该过滤器在本批次内被跳过。
type Preparer interface {
	Prepare(ctx context.Context, rctx *core.RecommendationContext) (Filter, error)
}
