package recall

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/similarity"
)

// 行为相似策略的打分常量。
const (
	behavioralBase            = 1.0
	behavioralLongViewBonus   = 0.5 // 浏览时长超过 30 秒
	behavioralRecentBonus     = 0.3 // 7 天内的浏览
	behavioralCategoryBonus   = 0.4 // 类目一致
	behavioralPricePenalty    = 0.2 // 价格相差超过 50%
	behavioralConfidence      = 0.8
	behavioralLongViewSeconds = 30
	behavioralRecentWindow    = 7 * 24 * time.Hour
	behavioralPriceGap        = 0.5
)

// Behavioral 是基于最近浏览行为的召回源。
//
// 核心思想："看过这个的人，可能还想看同类型的相似商品"
//
// 算法流程：
//  1. 取用户最近 N 次 view 事件（会话内浏览但尚未落库的商品视为刚刚发生）
//  2. 对每个浏览过的商品，通过 similarity.Finder 取同类型近邻
//  3. 打分：基础 1.0；时长>30s +0.5；7 天内 +0.3；类目一致 +0.4；价格差>50% -0.2；截断到 [0,5]
//  4. 置信度固定 0.8
type Behavioral struct {
	Interactions core.InteractionRepository
	Catalog      core.CatalogRepository
	Finder       *similarity.Finder

	// RecentViews 考虑的最近浏览数（N）
	RecentViews int

	// NeighborsPerView 每个浏览商品取多少个近邻
	NeighborsPerView int

	// CrossType 为 true 时关闭同类型约束
	CrossType bool

	// MaxConcurrent 近邻查询的并发上限
	MaxConcurrent int

	// Now 当前时间，测试可替换
	Now func() time.Time
}

func (r *Behavioral) Name() string {
	return "recall.behavioral"
}

type viewSignal struct {
	event    core.InteractionEvent
	category string
	price    float64
}

func (r *Behavioral) Recall(
	ctx context.Context,
	rctx *core.RecommendationContext,
) ([]*core.Candidate, error) {
	if r.Finder == nil || rctx == nil {
		return nil, nil
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	n := r.RecentViews
	if n <= 0 {
		n = defaults.DefaultRecentViews()
	}
	perView := r.NeighborsPerView
	if perView <= 0 {
		perView = 5
	}

	views, err := r.recentViews(ctx, rctx, n, now)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, nil
	}
	r.fillProductDetails(ctx, views)

	var (
		mu  sync.Mutex
		out []*core.Candidate
	)
	eg, egCtx := errgroup.WithContext(ctx)
	limit := r.MaxConcurrent
	if limit <= 0 {
		limit = 4
	}
	eg.SetLimit(limit)

	for _, v := range views {
		eg.Go(func() error {
			neighbors, err := r.Finder.FindSimilar(egCtx, v.event.ProductID, perView, !r.CrossType)
			if err != nil {
				// 单个浏览商品查询失败只丢弃它自己的近邻
				return nil
			}
			cands := make([]*core.Candidate, 0, len(neighbors))
			for _, nb := range neighbors {
				c := &core.Candidate{
					ProductID:  nb.Product.ID,
					Score:      scoreBehavioral(v, nb.Product, now),
					Reason:     core.ReasonBehavioral,
					Confidence: behavioralConfidence,
				}
				c.Metadata.ApplyProduct(nb.Product)
				c.Metadata.Behavioral = &core.BehavioralMeta{
					SourceProductID: v.event.ProductID,
					Similarity:      nb.Similarity,
				}
				cands = append(cands, c)
			}
			mu.Lock()
			out = append(out, cands...)
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return keepBest(out), nil
}

// recentViews 合并已落库的浏览事件与会话内的浏览，按时间倒序取前 n 个，同一商品只保留最近一次。
func (r *Behavioral) recentViews(
	ctx context.Context,
	rctx *core.RecommendationContext,
	n int,
	now time.Time,
) ([]*viewSignal, error) {
	var events []core.InteractionEvent
	if rctx.UserID != "" && r.Interactions != nil {
		evs, err := r.Interactions.GetUserInteractions(ctx, rctx.UserID, core.ActionView, n)
		if err != nil {
			return nil, core.ErrRepositoryUnavailable("get user interactions", err)
		}
		events = evs
	}

	seen := make(map[string]struct{}, n)
	out := make([]*viewSignal, 0, n)

	// 会话内的浏览优先：它们代表当前意图
	for _, id := range rctx.Session.ViewedProducts {
		if len(out) >= n {
			break
		}
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, &viewSignal{event: core.InteractionEvent{
			UserID:    rctx.UserID,
			ProductID: id,
			Action:    core.ActionView,
			Timestamp: now,
		}})
	}
	for _, ev := range events {
		if len(out) >= n {
			break
		}
		if ev.Action != core.ActionView {
			continue
		}
		if _, ok := seen[ev.ProductID]; ok {
			// 会话浏览没有时长，用落库事件补上
			for _, v := range out {
				if v.event.ProductID == ev.ProductID && v.event.DurationSeconds == 0 {
					v.event.DurationSeconds = ev.DurationSeconds
					v.event.Metadata = ev.Metadata
				}
			}
			continue
		}
		seen[ev.ProductID] = struct{}{}
		out = append(out, &viewSignal{event: ev})
	}

	for _, v := range out {
		v.category = v.event.Metadata.Category
		v.price = v.event.Metadata.Price
	}
	return out, nil
}

// fillProductDetails 事件快照里没有类目/价格时，从目录补齐；目录不可用时保持原样。
func (r *Behavioral) fillProductDetails(ctx context.Context, views []*viewSignal) {
	if r.Catalog == nil {
		return
	}
	missing := make([]string, 0, len(views))
	for _, v := range views {
		if v.category == "" || v.price == 0 {
			missing = append(missing, v.event.ProductID)
		}
	}
	if len(missing) == 0 {
		return
	}
	details, err := r.Catalog.GetProductCatalogDetails(ctx, missing)
	if err != nil {
		return
	}
	idx := core.ProductIndex(details)
	for _, v := range views {
		p, ok := idx[v.event.ProductID]
		if !ok {
			continue
		}
		if v.category == "" {
			v.category = p.Category
		}
		if v.price == 0 {
			v.price = p.Price
		}
	}
}

func scoreBehavioral(v *viewSignal, p core.Product, now time.Time) float64 {
	score := behavioralBase
	if v.event.DurationSeconds > behavioralLongViewSeconds {
		score += behavioralLongViewBonus
	}
	if v.event.Age(now) < behavioralRecentWindow {
		score += behavioralRecentBonus
	}
	if v.category != "" && p.Category == v.category {
		score += behavioralCategoryBonus
	}
	if v.price > 0 && p.Price > 0 && math.Abs(p.Price-v.price)/v.price > behavioralPriceGap {
		score -= behavioralPricePenalty
	}
	return clamp(score, 0, core.MaxSimilarity)
}
