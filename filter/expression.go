package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/dsl"
)

// ExpressionFilter 使用 CEL 表达式过滤推荐：表达式为 false 的推荐被移除。
// Expr 为空时使用 rctx.Expression；两者都为空时不过滤。
// 表达式无法编译时整个过滤器被跳过，不影响结果。
type ExpressionFilter struct {
	Expr string
}

func (f *ExpressionFilter) Name() string {
	return "filter.expression"
}

func (f *ExpressionFilter) expr(rctx *core.RecommendationContext) string {
	if f.Expr != "" {
		return f.Expr
	}
	if rctx != nil {
		return rctx.Expression
	}
	return ""
}

func (f *ExpressionFilter) Prepare(_ context.Context, rctx *core.RecommendationContext) (Filter, error) {
	expr := f.expr(rctx)
	if expr == "" {
		return nil, nil
	}
	if _, err := dsl.Compile(expr); err != nil {
		return nil, core.ErrInvalidContext("invalid expression: " + err.Error())
	}
	return &ExpressionFilter{Expr: expr}, nil
}

func (f *ExpressionFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendationContext,
	rec *core.AggregatedRecommendation,
) (bool, error) {
	expr := f.expr(rctx)
	if expr == "" {
		return false, nil
	}
	ok, err := dsl.NewEval(rec, rctx).Evaluate(expr)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
