package recall

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/metrics"
)

// Fanout 并发执行多个策略，并在全部返回后（fan-in 屏障）交给 Merger。
// 每个策略独立超时；超时或出错的策略按空结果处理，不会中断其他策略。
type Fanout struct {
	Sources       []Source
	Timeout       time.Duration // 每个策略的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	Logger        zerolog.Logger
}

// Outcome 是一次 fan-out 的原始输出。
type Outcome struct {
	Candidates []*core.Candidate
	Stats      []core.StrategyStat
}

// Collect 执行所有策略并收集候选。调用方取消 ctx 时，未完成的策略会尽快返回，结果被丢弃。
func (n *Fanout) Collect(ctx context.Context, rctx *core.RecommendationContext) Outcome {
	if len(n.Sources) == 0 {
		return Outcome{}
	}

	timeout := n.Timeout
	if timeout <= 0 {
		timeout = defaults.DefaultTimeout()
	}
	userID := ""
	if rctx != nil {
		userID = rctx.UserID
	}

	var (
		mu    sync.Mutex
		out   Outcome
		stats = make([]core.StrategyStat, len(n.Sources))
		eg    errgroup.Group
	)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			start := time.Now()
			items, err := n.run(ctx, src, rctx, timeout)
			elapsed := time.Since(start)

			stat := core.StrategyStat{Name: src.Name(), Latency: elapsed}
			if err != nil {
				stat.Failed = true
				cause := failureCause(err)
				metrics.RecordStrategy(src.Name(), elapsed, 0, cause)
				n.Logger.Warn().
					Err(err).
					Str("strategy", src.Name()).
					Str("cause", cause).
					Str("user_id", userID).
					Dur("latency", elapsed).
					Msg("strategy failed, continuing without it")
				stats[i] = stat
				return nil
			}

			stat.Candidates = len(items)
			metrics.RecordStrategy(src.Name(), elapsed, len(items), "")
			stats[i] = stat

			mu.Lock()
			out.Candidates = append(out.Candidates, items...)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	out.Stats = stats
	return out
}

// run 在独立超时下执行一个策略；策略 panic 也按失败处理。
func (n *Fanout) run(ctx context.Context, src Source, rctx *core.RecommendationContext, timeout time.Duration) (items []*core.Candidate, err error) {
	recallCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		items []*core.Candidate
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: core.NewDomainError(core.ModuleEngine, core.ErrorCodeInternalError, "strategy panicked")}
			}
		}()
		items, err := src.Recall(recallCtx, rctx)
		done <- result{items: items, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && recallCtx.Err() != nil {
			return nil, recallCtx.Err()
		}
		return res.items, res.err
	case <-recallCtx.Done():
		return nil, recallCtx.Err()
	}
}

func failureCause(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case core.IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}
