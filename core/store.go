package core

import "context"

// Store 是最小的字节 KV 接口，黑名单等简单列表只需要它。
// store.MemoryStore 与 store.RedisStore 都实现了它。
type Store interface {
	// Name 后端名称，写进日志
	Name() string

	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入；ttl 单位为秒，省略或 <=0 表示不过期
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	Delete(ctx context.Context, key string) error

	Close() error
}

// KeyValueStore 在 Store 之上增加有序集合与哈希，repository.KV 用它组织
// 行为日志、按天热度、商品目录与订单明细。
//
// 有序集合的读取一律按分数降序，分数相同按 member 逆字典序（与 Redis ZREVRANGE 一致），
// 这样不同后端返回的顺序完全相同。
type KeyValueStore interface {
	Store

	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZIncrBy 返回增量后的分数
	ZIncrBy(ctx context.Context, key string, increment float64, member string) (float64, error)

	// ZRange 返回排名 [start, stop] 的成员，stop 为 -1 表示到末尾
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)

	ZScore(ctx context.Context, key string, member string) (float64, error)

	HGet(ctx context.Context, key, field string) ([]byte, error)

	HSet(ctx context.Context, key, field string, value []byte) error

	// HGetAll key 不存在时返回空 map
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

// ScoredMember 是有序集合中的一个成员及其分数。
type ScoredMember struct {
	Member string
	Score  float64
}

// ErrStoreNotFound 表示 key、字段或成员不存在。
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

// IsStoreNotFound 判断错误是否来自存储层的“不存在”。
func IsStoreNotFound(err error) bool {
	de := GetDomainError(err)
	return de != nil && de.Module == ModuleStore && de.Code == ErrorCodeNotFound
}
