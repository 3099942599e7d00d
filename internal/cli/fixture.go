package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/filter"
	"github.com/rushteam/hybridrec/repository"
)

// Fixture 是灌入存储的演示数据：商品目录、历史行为与黑名单。
type Fixture struct {
	Products   []core.Product      `json:"products" yaml:"products"`
	Events     []FixtureEvent      `json:"events" yaml:"events"`
	Blacklist  []string            `json:"blacklist" yaml:"blacklist"`
	UserBlocks map[string][]string `json:"user_blocks" yaml:"user_blocks"`
}

// FixtureEvent 是一条历史行为。Timestamp 为空时用 DaysAgo 相对当前时间计算。
type FixtureEvent struct {
	UserID          string    `json:"user_id" yaml:"user_id"`
	ProductID       string    `json:"product_id" yaml:"product_id"`
	Action          string    `json:"action" yaml:"action"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
	DaysAgo         float64   `json:"days_ago" yaml:"days_ago"`
	DurationSeconds float64   `json:"duration_seconds" yaml:"duration_seconds"`
	OrderID         string    `json:"order_id" yaml:"order_id"`
}

// LoadFixture 读取 YAML 或 JSON（按扩展名）格式的 fixture。
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	fx := &Fixture{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, fx)
	default:
		err = yaml.Unmarshal(data, fx)
	}
	if err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return fx, nil
}

// Event 转换成领域事件。
func (e FixtureEvent) Event(now time.Time) core.InteractionEvent {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = now.Add(-time.Duration(e.DaysAgo * float64(24*time.Hour)))
	}
	return core.InteractionEvent{
		UserID:          e.UserID,
		ProductID:       e.ProductID,
		Action:          core.Action(e.Action),
		Timestamp:       ts,
		DurationSeconds: e.DurationSeconds,
		OrderID:         e.OrderID,
	}
}

// Apply 把 fixture 写入仓储与黑名单存储。
// 事件的类目/价格快照从 fixture 中的商品补齐。
func (fx *Fixture) Apply(ctx context.Context, repo *repository.KV, blacklist *filter.StoreAdapter, blacklistKey, userKeyPrefix string) error {
	for _, p := range fx.Products {
		if err := repo.PutProduct(ctx, p); err != nil {
			return err
		}
	}

	idx := core.ProductIndex(fx.Products)
	now := time.Now()
	for i, fe := range fx.Events {
		ev := fe.Event(now)
		if p, ok := idx[ev.ProductID]; ok {
			ev.Metadata = core.EventMetadata{Category: p.Category, Price: p.Price, Tags: p.Tags}
		}
		if err := repo.AppendInteraction(ctx, ev); err != nil {
			return fmt.Errorf("fixture event %d: %w", i, err)
		}
	}

	if blacklist == nil {
		return nil
	}
	if len(fx.Blacklist) > 0 && blacklistKey != "" {
		if err := blacklist.SetBlacklist(ctx, blacklistKey, fx.Blacklist); err != nil {
			return err
		}
	}
	if userKeyPrefix != "" {
		for userID, ids := range fx.UserBlocks {
			if err := blacklist.SetBlacklist(ctx, userKeyPrefix+":"+userID, ids); err != nil {
				return err
			}
		}
	}
	return nil
}
