package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/recotest"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTracker(t *testing.T, repo core.InteractionRepository) *Tracker {
	t.Helper()
	tr, err := New(repo, WithClock(func() time.Time { return fixedNow }), WithBufferSize(16), WithWriteTimeout(time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestNewRequiresRepository(t *testing.T) {
	_, err := New(nil)
	assert.True(t, core.IsInvalidInput(err))
}

// TestSubmitStoresAsync 测试提交后由后台消费者写入，并补齐 ID 与时间
func TestSubmitStoresAsync(t *testing.T) {
	repo := &recotest.Interactions{}
	tr := newTracker(t, repo)

	require.NoError(t, tr.Submit(context.Background(), core.InteractionEvent{
		UserID:          "u1",
		ProductID:       "P1",
		Action:          core.ActionView,
		DurationSeconds: 42,
		Metadata:        core.EventMetadata{Category: "shoes", Price: 99},
	}))

	assert.Eventually(t, func() bool {
		return len(repo.AppendedEvents()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ev := repo.AppendedEvents()[0]
	assert.NotEmpty(t, ev.ID)
	assert.True(t, fixedNow.Equal(ev.Timestamp))
	assert.Equal(t, 42.0, ev.DurationSeconds)
	assert.Equal(t, "shoes", ev.Metadata.Category)
}

func TestSubmitPreservesOrder(t *testing.T) {
	repo := &recotest.Interactions{}
	tr := newTracker(t, repo)

	products := []string{"P1", "P2", "P3", "P4"}
	for _, p := range products {
		require.NoError(t, tr.Submit(context.Background(), core.InteractionEvent{UserID: "u1", ProductID: p, Action: core.ActionCart}))
	}
	assert.Eventually(t, func() bool {
		return len(repo.AppendedEvents()) == len(products)
	}, 2*time.Second, 10*time.Millisecond)
	for i, ev := range repo.AppendedEvents() {
		assert.Equal(t, products[i], ev.ProductID)
	}
}

// TestSubmitRejectsInvalid 测试非法事件在提交阶段被拒绝
func TestSubmitRejectsInvalid(t *testing.T) {
	tr := newTracker(t, &recotest.Interactions{})

	tests := []struct {
		name  string
		event core.InteractionEvent
	}{
		{"missing user", core.InteractionEvent{ProductID: "P1", Action: core.ActionView}},
		{"missing product", core.InteractionEvent{UserID: "u1", Action: core.ActionView}},
		{"unknown action", core.InteractionEvent{UserID: "u1", ProductID: "P1", Action: "poke"}},
		{"negative duration", core.InteractionEvent{UserID: "u1", ProductID: "P1", Action: core.ActionView, DurationSeconds: -1}},
		{"negative price", core.InteractionEvent{UserID: "u1", ProductID: "P1", Action: core.ActionView, Metadata: core.EventMetadata{Price: -5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.Submit(context.Background(), tt.event)
			assert.True(t, core.IsInvalidInput(err))
		})
	}
}

func TestRecordIsSynchronous(t *testing.T) {
	repo := &recotest.Interactions{}
	tr := newTracker(t, repo)

	require.NoError(t, tr.Record(context.Background(), core.InteractionEvent{UserID: "u1", ProductID: "P1", Action: core.ActionPurchase, OrderID: "o1"}))
	require.Len(t, repo.AppendedEvents(), 1)
	assert.Equal(t, "o1", repo.AppendedEvents()[0].OrderID)

	repo.Fail(recotest.MethodAppendInteraction, errors.New("disk full"))
	err := tr.Record(context.Background(), core.InteractionEvent{UserID: "u1", ProductID: "P2", Action: core.ActionView})
	assert.True(t, core.IsUnavailable(err))
}

// TestTrackSwallowsStoreFailure 测试写入失败不影响调用方，也不重试
func TestTrackSwallowsStoreFailure(t *testing.T) {
	repo := &recotest.Interactions{}
	repo.Fail(recotest.MethodAppendInteraction, errors.New("disk full"))
	tr := newTracker(t, repo)

	tr.Track(context.Background(), core.InteractionEvent{UserID: "u1", ProductID: "P1", Action: core.ActionView})
	assert.Eventually(t, func() bool {
		return repo.Calls(recotest.MethodAppendInteraction) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, repo.AppendedEvents())
}

func TestSubmitAfterClose(t *testing.T) {
	tr, err := New(&recotest.Interactions{})
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	err = tr.Submit(context.Background(), core.InteractionEvent{UserID: "u1", ProductID: "P1", Action: core.ActionView})
	assert.ErrorIs(t, err, ErrClosed)
}
