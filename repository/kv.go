// Package repository 提供基于 core.KeyValueStore 的参考仓储实现，
// 以及熔断（Guarded）与目录缓存（CachedCatalog）两个装饰器。
//
// 生产环境里相似用户、热度等统计通常由数据库/离线任务计算，
// 这里的 KV 实现用于本地开发、命令行演示与测试，统计口径与接口约定保持一致。
package repository

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rushteam/hybridrec/core"
)

// 存储布局（所有 key 带 Prefix）：
//
//	catalog                      hash  productID -> Product JSON
//	event                        hash  eventID -> InteractionEvent JSON
//	events:{userID}              zset  eventID, score=unix nano
//	actions:{action}:{userID}    zset  productID, score=最近一次时间
//	actors:{action}:{productID}  zset  userID, score=次数
//	trending:{yyyymmdd}          zset  productID, score=当天加权热度
//	orders                       zset  orderID, score=最近一次时间
//	order_items                  hash  orderID -> []productID JSON
const (
	keyCatalog    = "catalog"
	keyEvent      = "event"
	keyEvents     = "events"
	keyActions    = "actions"
	keyActors     = "actors"
	keyTrending   = "trending"
	keyOrders     = "orders"
	keyOrderItems = "order_items"

	dayLayout = "20060102"
)

// actionWeights 是各行为对当天热度的贡献。
var actionWeights = map[core.Action]float64{
	core.ActionView:     1,
	core.ActionCart:     2,
	core.ActionFavorite: 2,
	core.ActionShare:    2,
	core.ActionPurchase: 3,
}

// KV 同时实现 core.InteractionRepository 与 core.CatalogRepository。
//
// 写路径由 tracker 的单个消费者串行调用；订单明细是读-改-写，
// 多个写入方并发追加同一订单时可能丢失商品。
type KV struct {
	Store  core.KeyValueStore
	Prefix string
	Now    func() time.Time
}

// NewKV 创建 KV 仓储。
func NewKV(s core.KeyValueStore) *KV {
	return &KV{Store: s, Prefix: "hybridrec:", Now: time.Now}
}

var (
	_ core.InteractionRepository = (*KV)(nil)
	_ core.CatalogRepository     = (*KV)(nil)
)

func (r *KV) key(parts ...string) string {
	k := r.Prefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

func (r *KV) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// PutProduct 写入或覆盖一个商品。
func (r *KV) PutProduct(ctx context.Context, p core.Product) error {
	if p.ID == "" {
		return core.NewDomainError(core.ModuleRepository, core.ErrorCodeInvalidInput, "repository: product id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product %s: %w", p.ID, err)
	}
	return r.Store.HSet(ctx, r.key(keyCatalog), p.ID, data)
}

// AppendInteraction 追加一条事件，并更新各项聚合。
func (r *KV) AppendInteraction(ctx context.Context, ev core.InteractionEvent) error {
	if ev.UserID == "" || ev.ProductID == "" || !ev.Action.Valid() {
		return core.NewDomainError(core.ModuleRepository, core.ErrorCodeInvalidInput, "repository: malformed interaction")
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.now()
	}
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("%s-%s-%d", ev.UserID, ev.ProductID, ev.Timestamp.UnixNano())
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}
	ts := float64(ev.Timestamp.UnixNano())
	action := string(ev.Action)

	if err := r.Store.HSet(ctx, r.key(keyEvent), ev.ID, data); err != nil {
		return err
	}
	if err := r.Store.ZAdd(ctx, r.key(keyEvents, ev.UserID), ts, ev.ID); err != nil {
		return err
	}
	if err := r.Store.ZAdd(ctx, r.key(keyActions, action, ev.UserID), ts, ev.ProductID); err != nil {
		return err
	}
	if _, err := r.Store.ZIncrBy(ctx, r.key(keyActors, action, ev.ProductID), 1, ev.UserID); err != nil {
		return err
	}
	day := ev.Timestamp.UTC().Format(dayLayout)
	if _, err := r.Store.ZIncrBy(ctx, r.key(keyTrending, day), actionWeights[ev.Action], ev.ProductID); err != nil {
		return err
	}

	if ev.Action == core.ActionPurchase {
		orderID := ev.OrderID
		if orderID == "" {
			// 没有订单号的购买按 用户+日期 归为同一单
			orderID = ev.UserID + "@" + day
		}
		if err := r.appendOrderItem(ctx, orderID, ev.ProductID, ts); err != nil {
			return err
		}
	}
	return nil
}

func (r *KV) appendOrderItem(ctx context.Context, orderID, productID string, ts float64) error {
	var items []string
	data, err := r.Store.HGet(ctx, r.key(keyOrderItems), orderID)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}
	case !core.IsStoreNotFound(err):
		return err
	}
	for _, id := range items {
		if id == productID {
			return r.Store.ZAdd(ctx, r.key(keyOrders), ts, orderID)
		}
	}
	items = append(items, productID)
	data, err = json.Marshal(items)
	if err != nil {
		return err
	}
	if err := r.Store.HSet(ctx, r.key(keyOrderItems), orderID, data); err != nil {
		return err
	}
	return r.Store.ZAdd(ctx, r.key(keyOrders), ts, orderID)
}
