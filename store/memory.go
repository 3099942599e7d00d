package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/hybridrec/core"
)

// sweepInterval 是后台清理过期 key 的周期；读取时也会检查过期。
const sweepInterval = 10 * time.Second

// MemoryStore 是进程内的 KeyValueStore，供测试、本地开发与命令行使用。
// 数据不落盘，进程退出即丢失。
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]memValue
	zsets  map[string]map[string]float64
	hashes map[string]map[string][]byte

	stop      chan struct{}
	closeOnce sync.Once
}

type memValue struct {
	data     []byte
	expireAt time.Time // 零值表示不过期
}

func (v memValue) expired(now time.Time) bool {
	return !v.expireAt.IsZero() && now.After(v.expireAt)
}

// NewMemoryStore 创建内存存储并启动过期清理，用完需要 Close。
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		values: make(map[string]memValue),
		zsets:  make(map[string]map[string]float64),
		hashes: make(map[string]map[string][]byte),
		stop:   make(chan struct{}),
	}
	go m.sweep()
	return m
}

var _ core.KeyValueStore = (*MemoryStore)(nil)

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for k, v := range m.values {
				if v.expired(now) {
					delete(m.values, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok || v.expired(time.Now()) {
		return nil, core.ErrStoreNotFound
	}
	return v.data, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl ...int) error {
	v := memValue{data: value}
	if len(ttl) > 0 && ttl[0] > 0 {
		v.expireAt = time.Now().Add(time.Duration(ttl[0]) * time.Second)
	}
	m.mu.Lock()
	m.values[key] = v
	m.mu.Unlock()
	return nil
}

// Delete 删除 key，不区分类型。
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.zsets, key)
	delete(m.hashes, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}

// zset 返回 key 对应的有序集合，不存在时创建。调用方需持有写锁。
func (m *MemoryStore) zset(key string) map[string]float64 {
	z, ok := m.zsets[key]
	if !ok {
		z = make(map[string]float64)
		m.zsets[key] = z
	}
	return z
}

func (m *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zset(key)[member] = score
	return nil
}

func (m *MemoryStore) ZIncrBy(_ context.Context, key string, increment float64, member string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z := m.zset(key)
	z[member] += increment
	return z[member], nil
}

func (m *MemoryStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	scored, err := m.ZRangeWithScores(ctx, key, start, stop)
	if err != nil {
		return nil, err
	}
	members := make([]string, len(scored))
	for i, s := range scored {
		members[i] = s.Member
	}
	return members, nil
}

func (m *MemoryStore) ZRangeWithScores(_ context.Context, key string, start, stop int64) ([]core.ScoredMember, error) {
	m.mu.RLock()
	ranked := make([]core.ScoredMember, 0, len(m.zsets[key]))
	for member, score := range m.zsets[key] {
		ranked = append(ranked, core.ScoredMember{Member: member, Score: score})
	}
	m.mu.RUnlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Member > ranked[j].Member
	})

	n := int64(len(ranked))
	start = max(start, 0)
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start > stop {
		return []core.ScoredMember{}, nil
	}
	return ranked[start : stop+1], nil
}

func (m *MemoryStore) ZScore(_ context.Context, key string, member string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	score, ok := m.zsets[key][member]
	if !ok {
		return 0, core.ErrStoreNotFound
	}
	return score, nil
}

func (m *MemoryStore) HGet(_ context.Context, key, field string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.hashes[key][field]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return v, nil
}

func (m *MemoryStore) HSet(_ context.Context, key, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string][]byte)
		m.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (m *MemoryStore) HGetAll(_ context.Context, key string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.hashes[key]))
	for field, v := range m.hashes[key] {
		out[field] = v
	}
	return out, nil
}
