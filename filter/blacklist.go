package filter

import (
	"context"

	"github.com/rushteam/hybridrec/core"
)

// BlacklistFilter 是排除过滤器，过滤掉以下商品：
//   - 当前正在看的商品（rctx.ProductID）
//   - 请求显式排除的商品（rctx.ExcludeProducts）
//   - 内存黑名单 ItemIDs
//   - Store 中的全局黑名单（Key）与用户拉黑列表（UserKeyPrefix:{userID}）
//   - ExcludePurchased 为 true 时，用户已购买的商品
type BlacklistFilter struct {
	// ItemIDs 是内存中的黑名单商品 ID 列表
	ItemIDs []string

	// Store 用于从存储中读取黑名单（可选）
	Store BlacklistStore

	// Key 是 Store 中的全局黑名单 key（可选）
	Key string

	// UserKeyPrefix 是 Store 中用户拉黑列表的 key 前缀（可选）
	UserKeyPrefix string

	ExcludePurchased bool
}

// BlacklistStore 是黑名单存储接口。
type BlacklistStore interface {
	// GetBlacklist 获取黑名单商品 ID 列表
	GetBlacklist(ctx context.Context, key string) ([]string, error)

	// GetUserBlocks 获取用户拉黑的商品 ID 列表
	GetUserBlocks(ctx context.Context, userID string, keyPrefix string) ([]string, error)
}

// NewBlacklistFilter 创建一个排除过滤器。
func NewBlacklistFilter(itemIDs []string, storeAdapter *StoreAdapter, key string) *BlacklistFilter {
	var store BlacklistStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &BlacklistFilter{
		ItemIDs: itemIDs,
		Store:   store,
		Key:     key,
	}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) Prepare(ctx context.Context, rctx *core.RecommendationContext) (Filter, error) {
	ids := make(map[string]struct{}, len(f.ItemIDs))
	for _, id := range f.ItemIDs {
		ids[id] = struct{}{}
	}
	if rctx != nil {
		if rctx.ProductID != "" {
			ids[rctx.ProductID] = struct{}{}
		}
		for _, id := range rctx.ExcludeProducts {
			ids[id] = struct{}{}
		}
		if f.ExcludePurchased {
			for id := range rctx.OwnedSet() {
				ids[id] = struct{}{}
			}
		}
	}

	// Store 读取失败只丢失对应的那一部分黑名单
	if f.Store != nil && f.Key != "" {
		if list, err := f.Store.GetBlacklist(ctx, f.Key); err == nil {
			for _, id := range list {
				ids[id] = struct{}{}
			}
		}
	}
	if f.Store != nil && f.UserKeyPrefix != "" && rctx != nil && rctx.UserID != "" {
		if list, err := f.Store.GetUserBlocks(ctx, rctx.UserID, f.UserKeyPrefix); err == nil {
			for _, id := range list {
				ids[id] = struct{}{}
			}
		}
	}

	if len(ids) == 0 {
		return nil, nil
	}
	return idSetFilter{name: f.Name(), ids: ids}, nil
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendationContext,
	rec *core.AggregatedRecommendation,
) (bool, error) {
	if rec == nil {
		return true, nil
	}
	prepared, err := f.Prepare(ctx, rctx)
	if err != nil || prepared == nil {
		return false, err
	}
	return prepared.ShouldFilter(ctx, rctx, rec)
}
