package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/metrics"
)

// BreakerConfig 是熔断器参数。
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig 返回默认参数：连续 5 次失败熔断，30 秒后半开。
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

func newBreaker(name string, cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[any] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// 调用方取消与“不存在”不算仓储故障
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				core.IsNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerState(name, to.String())
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// guard 在熔断器内执行 fn。熔断打开时直接返回 RepositoryUnavailable，不触达后端。
func guard[T any](cb *gobreaker.CircuitBreaker[any], op string, fn func() (T, error)) (T, error) {
	v, err := cb.Execute(func() (any, error) {
		res, err := fn()
		return res, err
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, core.ErrRepositoryUnavailable(op, err)
		}
		return zero, err
	}
	res, _ := v.(T)
	return res, nil
}

// GuardedInteractions 为 InteractionRepository 加上熔断。
type GuardedInteractions struct {
	next core.InteractionRepository
	cb   *gobreaker.CircuitBreaker[any]
}

// NewGuardedInteractions 创建带熔断的行为仓储。
//
//nolint:gocritic // zerolog.Logger 按值传递
func NewGuardedInteractions(next core.InteractionRepository, cfg BreakerConfig, logger zerolog.Logger) *GuardedInteractions {
	return &GuardedInteractions{next: next, cb: newBreaker("interactions", cfg, logger)}
}

var _ core.InteractionRepository = (*GuardedInteractions)(nil)

// State 返回熔断器状态。
func (g *GuardedInteractions) State() string { return g.cb.State().String() }

func (g *GuardedInteractions) AppendInteraction(ctx context.Context, ev core.InteractionEvent) error {
	_, err := guard(g.cb, "append interaction", func() (struct{}, error) {
		return struct{}{}, g.next.AppendInteraction(ctx, ev)
	})
	return err
}

func (g *GuardedInteractions) GetUserInteractions(ctx context.Context, userID string, action core.Action, limit int) ([]core.InteractionEvent, error) {
	return guard(g.cb, "get user interactions", func() ([]core.InteractionEvent, error) {
		return g.next.GetUserInteractions(ctx, userID, action, limit)
	})
}

func (g *GuardedInteractions) GetUserPurchaseHistory(ctx context.Context, userID string) ([]string, error) {
	return guard(g.cb, "get user purchase history", func() ([]string, error) {
		return g.next.GetUserPurchaseHistory(ctx, userID)
	})
}

func (g *GuardedInteractions) FindSimilarUsers(ctx context.Context, userID string, limit int) ([]core.SimilarUser, error) {
	return guard(g.cb, "find similar users", func() ([]core.SimilarUser, error) {
		return g.next.FindSimilarUsers(ctx, userID, limit)
	})
}

func (g *GuardedInteractions) GetPopularProductsByUsers(ctx context.Context, userIDs []string, action core.Action, limit int, productType string) ([]core.PopularProduct, error) {
	return guard(g.cb, "get popular products by users", func() ([]core.PopularProduct, error) {
		return g.next.GetPopularProductsByUsers(ctx, userIDs, action, limit, productType)
	})
}

func (g *GuardedInteractions) GetTrendingProducts(ctx context.Context, days, limit int, productType string) ([]core.TrendingProduct, error) {
	return guard(g.cb, "get trending products", func() ([]core.TrendingProduct, error) {
		return g.next.GetTrendingProducts(ctx, days, limit, productType)
	})
}

func (g *GuardedInteractions) GetOrderItemGroups(ctx context.Context, limit int) ([]core.OrderItem, error) {
	return guard(g.cb, "get order item groups", func() ([]core.OrderItem, error) {
		return g.next.GetOrderItemGroups(ctx, limit)
	})
}

// GuardedCatalog 为 CatalogRepository 加上熔断。
type GuardedCatalog struct {
	next core.CatalogRepository
	cb   *gobreaker.CircuitBreaker[any]
}

// NewGuardedCatalog 创建带熔断的目录仓储。
//
//nolint:gocritic // zerolog.Logger 按值传递
func NewGuardedCatalog(next core.CatalogRepository, cfg BreakerConfig, logger zerolog.Logger) *GuardedCatalog {
	return &GuardedCatalog{next: next, cb: newBreaker("catalog", cfg, logger)}
}

var _ core.CatalogRepository = (*GuardedCatalog)(nil)

// State 返回熔断器状态。
func (g *GuardedCatalog) State() string { return g.cb.State().String() }

func (g *GuardedCatalog) GetProductCatalogDetails(ctx context.Context, productIDs []string) ([]core.Product, error) {
	return guard(g.cb, "get product details", func() ([]core.Product, error) {
		return g.next.GetProductCatalogDetails(ctx, productIDs)
	})
}

func (g *GuardedCatalog) FindSimilarProducts(ctx context.Context, productID string, limit int, sameTypeOnly bool) ([]core.Product, error) {
	return guard(g.cb, "find similar products", func() ([]core.Product, error) {
		return g.next.FindSimilarProducts(ctx, productID, limit, sameTypeOnly)
	})
}

func (g *GuardedCatalog) CalculateContentSimilarity(ctx context.Context, productA, productB string) (float64, error) {
	return guard(g.cb, "calculate content similarity", func() (float64, error) {
		return g.next.CalculateContentSimilarity(ctx, productA, productB)
	})
}

func (g *GuardedCatalog) SearchProducts(ctx context.Context, query core.ProductQuery) ([]core.Product, error) {
	return guard(g.cb, "search products", func() ([]core.Product, error) {
		return g.next.SearchProducts(ctx, query)
	})
}
