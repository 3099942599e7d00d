package recall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

type staticSource struct {
	name  string
	cands []*core.Candidate
}

func (s staticSource) Name() string { return s.name }
func (s staticSource) Recall(context.Context, *core.RecommendationContext) ([]*core.Candidate, error) {
	return s.cands, nil
}

type funcSource struct {
	name string
	fn   func(ctx context.Context) ([]*core.Candidate, error)
}

func (s funcSource) Name() string { return s.name }
func (s funcSource) Recall(ctx context.Context, _ *core.RecommendationContext) ([]*core.Candidate, error) {
	return s.fn(ctx)
}

// TestFanoutFailSoft 测试超时、出错、panic 的策略都按空结果处理
func TestFanoutFailSoft(t *testing.T) {
	fan := &Fanout{
		Timeout: 50 * time.Millisecond,
		Logger:  zerolog.Nop(),
		Sources: []Source{
			staticSource{name: "ok", cands: []*core.Candidate{cand("P1", core.ReasonTrending, 0.5, 0.6)}},
			funcSource{name: "slow", fn: func(ctx context.Context) ([]*core.Candidate, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}},
			funcSource{name: "broken", fn: func(context.Context) ([]*core.Candidate, error) {
				return nil, core.ErrRepositoryUnavailable("x", errors.New("down"))
			}},
			funcSource{name: "panics", fn: func(context.Context) ([]*core.Candidate, error) {
				panic("boom")
			}},
		},
	}

	start := time.Now()
	out := fan.Collect(context.Background(), &core.RecommendationContext{UserID: "u1"})
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "P1", out.Candidates[0].ProductID)

	require.Len(t, out.Stats, 4)
	assert.Equal(t, "ok", out.Stats[0].Name)
	assert.False(t, out.Stats[0].Failed)
	assert.Equal(t, 1, out.Stats[0].Candidates)
	for _, st := range out.Stats[1:] {
		assert.True(t, st.Failed, st.Name)
	}
}

// TestFanoutRunsConcurrently 测试策略并发执行：总耗时接近单个策略而不是总和
func TestFanoutRunsConcurrently(t *testing.T) {
	sleepy := func(name string) Source {
		return funcSource{name: name, fn: func(ctx context.Context) ([]*core.Candidate, error) {
			select {
			case <-time.After(100 * time.Millisecond):
				return []*core.Candidate{cand(name, core.ReasonTrending, 0.5, 0.6)}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}}
	}
	fan := &Fanout{
		Timeout: time.Second,
		Logger:  zerolog.Nop(),
		Sources: []Source{sleepy("A"), sleepy("B"), sleepy("C"), sleepy("D"), sleepy("E")},
	}

	start := time.Now()
	out := fan.Collect(context.Background(), &core.RecommendationContext{})
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Len(t, out.Candidates, 5)
}

func TestFanoutCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fan := &Fanout{
		Timeout: time.Second,
		Logger:  zerolog.Nop(),
		Sources: []Source{funcSource{name: "slow", fn: func(ctx context.Context) ([]*core.Candidate, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}},
	}
	out := fan.Collect(ctx, &core.RecommendationContext{})
	assert.Empty(t, out.Candidates)
	require.Len(t, out.Stats, 1)
	assert.True(t, out.Stats[0].Failed)
}

func TestFanoutNoSources(t *testing.T) {
	out := (&Fanout{}).Collect(context.Background(), nil)
	assert.Empty(t, out.Candidates)
	assert.Empty(t, out.Stats)
}
