// Package tracker 是行为写入的异步通道：提交即返回，由后台消费者写入 InteractionRepository。
//
// 投递语义为 at-most-once：写入失败只记录日志与指标，不重试、不回传给调用方。
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/metrics"
)

// Topic 是行为事件在内部队列中的主题名。
const Topic = "interactions"

// 指标中 outcome 的取值。
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeDropped  = "dropped"
	OutcomeStored   = "stored"
	OutcomeFailed   = "failed"
)

// ErrClosed 表示 Tracker 已关闭。
var ErrClosed = errors.New("tracker: closed")

// Tracker 把行为事件提交到内存队列，并由单个后台 goroutine 顺序写入仓储。
type Tracker struct {
	repo     core.InteractionRepository
	pubsub   *gochannel.GoChannel
	logger   zerolog.Logger
	validate *validator.Validate

	bufferSize   int
	writeTimeout time.Duration
	now          func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option 配置 Tracker。
type Option func(*Tracker)

// WithLogger 设置日志。
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithBufferSize 设置队列缓冲大小。
func WithBufferSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.bufferSize = n
		}
	}
}

// WithWriteTimeout 设置单次写入仓储的超时时间。
func WithWriteTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.writeTimeout = d
		}
	}
}

// WithClock 替换时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New 创建并启动 Tracker。调用方负责在退出前调用 Close。
func New(repo core.InteractionRepository, opts ...Option) (*Tracker, error) {
	if repo == nil {
		return nil, core.NewDomainError(core.ModuleTracker, core.ErrorCodeInvalidInput, "tracker: repository is required")
	}
	t := &Tracker{
		repo:         repo,
		logger:       zerolog.Nop(),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		bufferSize:   1024,
		writeTimeout: 5 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.pubsub = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(t.bufferSize),
	}, watermill.NopLogger{})

	msgs, err := t.pubsub.Subscribe(context.Background(), Topic)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleTracker, core.ErrorCodeInternalError, "tracker: subscribe", err)
	}

	t.wg.Add(1)
	go t.consume(msgs)
	return t, nil
}

// Track 提交一条行为事件，立即返回。
// 非法事件、队列已关闭或发布失败只记录日志，不会影响调用方。
func (t *Tracker) Track(ctx context.Context, event core.InteractionEvent) {
	if err := t.Submit(ctx, event); err != nil {
		t.logger.Warn().
			Err(err).
			Str("user_id", event.UserID).
			Str("product_id", event.ProductID).
			Str("action", string(event.Action)).
			Msg("track event dropped")
	}
}

// Submit 与 Track 相同，但把提交阶段的错误返回给调用方（仓储写入仍然是异步的）。
func (t *Tracker) Submit(_ context.Context, event core.InteractionEvent) error {
	event = t.normalize(event)
	if err := t.validate.Struct(event); err != nil {
		metrics.RecordTracker(OutcomeRejected)
		return core.WrapDomainError(core.ModuleTracker, core.ErrorCodeInvalidInput, "tracker: invalid event", err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.RecordTracker(OutcomeRejected)
		return core.WrapDomainError(core.ModuleTracker, core.ErrorCodeInternalError, "tracker: encode event", err)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		metrics.RecordTracker(OutcomeDropped)
		return ErrClosed
	}
	if err := t.pubsub.Publish(Topic, message.NewMessage(event.ID, payload)); err != nil {
		metrics.RecordTracker(OutcomeDropped)
		return core.ErrTracking(err)
	}
	metrics.RecordTracker(OutcomeAccepted)
	return nil
}

// Record 同步写入一条事件，供命令行与回放使用；后台消费者也走这条路径。
func (t *Tracker) Record(ctx context.Context, event core.InteractionEvent) error {
	event = t.normalize(event)
	if err := t.validate.Struct(event); err != nil {
		metrics.RecordTracker(OutcomeRejected)
		return core.WrapDomainError(core.ModuleTracker, core.ErrorCodeInvalidInput, "tracker: invalid event", err)
	}
	return t.store(ctx, event)
}

func (t *Tracker) store(ctx context.Context, event core.InteractionEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, t.writeTimeout)
	defer cancel()
	if err := t.repo.AppendInteraction(writeCtx, event); err != nil {
		metrics.RecordTracker(OutcomeFailed)
		return core.ErrTracking(err)
	}
	metrics.RecordTracker(OutcomeStored)
	return nil
}

func (t *Tracker) consume(msgs <-chan *message.Message) {
	defer t.wg.Done()
	for msg := range msgs {
		var event core.InteractionEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			t.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("decode tracked event")
			msg.Ack()
			continue
		}
		if err := t.store(context.Background(), event); err != nil {
			t.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("user_id", event.UserID).
				Str("product_id", event.ProductID).
				Msg("store tracked event")
		}
		// 无论成功与否都确认：不重试
		msg.Ack()
	}
}

// normalize 补齐事件 ID 与时间戳。
func (t *Tracker) normalize(event core.InteractionEvent) core.InteractionEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = t.now()
	}
	return event
}

// Close 停止接收新事件，并等待后台消费者退出。队列中尚未投递的事件可能被丢弃。
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := t.pubsub.Close()
	t.wg.Wait()
	return err
}
