package core

import "time"

// Action 是用户行为类型。
type Action string

const (
	ActionView     Action = "view"
	ActionCart     Action = "cart"
	ActionPurchase Action = "purchase"
	ActionFavorite Action = "favorite"
	ActionShare    Action = "share"
)

// Valid 判断行为类型是否为已知值。
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCart, ActionPurchase, ActionFavorite, ActionShare:
		return true
	}
	return false
}

// EventMetadata 是行为发生时的上下文快照。
type EventMetadata struct {
	Category string   `json:"category,omitempty"`
	Price    float64  `json:"price,omitempty" validate:"gte=0"`
	Tags     []string `json:"tags,omitempty"`
	Referrer string   `json:"referrer,omitempty"`
}

// InteractionEvent 是一条用户交互事件。
// 事件只追加、不可修改，归 InteractionRepository 所有。
type InteractionEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id" validate:"required"`
	ProductID string    `json:"product_id" validate:"required"`
	Action    Action    `json:"action" validate:"required,oneof=view cart purchase favorite share"`
	Timestamp time.Time `json:"timestamp"`

	// DurationSeconds 浏览时长，0 表示未知
	DurationSeconds float64 `json:"duration_seconds,omitempty" validate:"gte=0"`

	// OrderID 购买事件所属订单，用于搭配购买的共现统计
	OrderID string `json:"order_id,omitempty"`

	Metadata EventMetadata `json:"context_metadata"`
}

// Age 返回事件距 now 的时长，未来时间视为 0。
func (e InteractionEvent) Age(now time.Time) time.Duration {
	if e.Timestamp.IsZero() || e.Timestamp.After(now) {
		return 0
	}
	return now.Sub(e.Timestamp)
}
