package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rushteam/hybridrec/core"
)

const programCacheSize = 256

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 缓存编译后的表达式，同一表达式只编译一次
	programs     *lru.Cache[string, cel.Program]
	programsOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

func programCache() *lru.Cache[string, cel.Program] {
	programsOnce.Do(func() {
		programs, _ = lru.New[string, cel.Program](programCacheSize)
	})
	return programs
}

// Compile 编译表达式并放入缓存；可用于在请求入口提前校验表达式。
func Compile(expr string) (cel.Program, error) {
	if prg, ok := programCache().Get(expr); ok {
		return prg, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	programCache().Add(expr, prg)
	return prg, nil
}

// Eval 是推荐结果上的表达式解释器，使用 CEL (Common Expression Language) 实现。
//
// 可用变量：
//   - item：id / score / confidence / category / product_type / price / tags / reasons
//   - label：推荐结果上的 Label，值为 Label.Value，例如 label.recall_source
//   - rctx：user_id / product_id / category / product_type / limit
//
// 示例：
//   - `item.price < 100.0`
//   - `"trending" in item.reasons && item.confidence >= 0.6`
//   - `item.category == rctx.category`
//   - `label.recall_source.contains("collaborative")`
type Eval struct {
	rec  *core.AggregatedRecommendation
	rctx *core.RecommendationContext
}

// NewEval 创建一个绑定到单条推荐结果的解释器。
func NewEval(rec *core.AggregatedRecommendation, rctx *core.RecommendationContext) *Eval {
	return &Eval{rec: rec, rctx: rctx}
}

// Evaluate 执行表达式，返回布尔结果；空表达式恒为 true。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	prg, err := Compile(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		// 访问不存在的 label 会报错，表达式里应先判断 label.key != null
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func (e *Eval) buildInput() map[string]any {
	item := map[string]any{}
	label := map[string]any{}
	if r := e.rec; r != nil {
		reasons := make([]string, 0, len(r.Reasons))
		for _, reason := range r.ReasonList() {
			reasons = append(reasons, string(reason))
		}
		tags := r.Metadata.Tags
		if tags == nil {
			tags = []string{}
		}
		item = map[string]any{
			"id":           r.ProductID,
			"score":        r.Score,
			"confidence":   r.Confidence,
			"category":     r.Metadata.Category,
			"product_type": r.Metadata.ProductType,
			"price":        r.Metadata.Price,
			"tags":         tags,
			"reasons":      reasons,
		}
		for k, v := range r.Labels {
			label[k] = v.Value
		}
	}

	rctx := map[string]any{}
	if c := e.rctx; c != nil {
		rctx = map[string]any{
			"user_id":      c.UserID,
			"product_id":   c.ProductID,
			"category":     c.Category,
			"product_type": c.ProductType,
			"limit":        c.Limit,
		}
	}

	return map[string]any{
		"item":  item,
		"label": label,
		"rctx":  rctx,
	}
}
