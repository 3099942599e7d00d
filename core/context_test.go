package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, DefaultLimit},
		{"negative uses default", -3, DefaultLimit},
		{"explicit", 5, 5},
		{"capped", 50, MaxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &RecommendationContext{Limit: tt.limit}
			assert.Equal(t, tt.want, rc.EffectiveLimit(DefaultLimit, MaxLimit))
		})
	}
}

func TestHasPersonalSignal(t *testing.T) {
	assert.False(t, (&RecommendationContext{UserID: "u1"}).HasPersonalSignal())
	assert.True(t, (&RecommendationContext{UserID: "u1", Session: SessionState{CartItems: []string{"P1"}}}).HasPersonalSignal())
	assert.True(t, (&RecommendationContext{ProductID: "P1"}).HasPersonalSignal())
	assert.False(t, (*RecommendationContext)(nil).HasPersonalSignal())
	assert.True(t, (*RecommendationContext)(nil).IsAnonymous())
}

// TestSeedProducts 测试种子商品：当前商品、购物车、已购，去重且保持顺序
func TestSeedProducts(t *testing.T) {
	rc := &RecommendationContext{
		ProductID: "P1",
		Session:   SessionState{CartItems: []string{"P2", "P1", ""}},
		History:   UserHistory{PurchasedProducts: []string{"P3", "P2"}},
	}
	assert.Equal(t, []string{"P1", "P2", "P3"}, rc.SeedProducts())
}

// TestCloneIsDeep 测试 Clone 后修改副本不影响原对象
func TestCloneIsDeep(t *testing.T) {
	orig := &RecommendationContext{
		UserID:  "u1",
		Session: SessionState{ViewedProducts: []string{"P1"}},
		History: UserHistory{PurchasedProducts: []string{"P2"}},
	}
	c := orig.Clone()
	c.Session.ViewedProducts[0] = "X"
	c.History.PurchasedProducts = append(c.History.PurchasedProducts, "P3")
	c.UserID = "u2"

	assert.Equal(t, "P1", orig.Session.ViewedProducts[0])
	assert.Equal(t, []string{"P2"}, orig.History.PurchasedProducts)
	assert.Equal(t, "u1", orig.UserID)
	assert.NotNil(t, (*RecommendationContext)(nil).Clone())
}
