package recall

import (
	"context"
	"math"

	"github.com/rushteam/hybridrec/core"
)

const (
	collaborativeScoreWeight      = 0.8
	collaborativeConfidenceDivide = 10.0
)

// Collaborative 是基于用户的协同过滤召回源（User-based CF, u2i）。
//
// 核心思想："兴趣相似的用户，喜欢相似的商品"
//
// 算法流程：
//  1. 由外部取 TopK 相似用户（u2u，默认 50 个）
//  2. 统计这些用户购买过、而目标用户尚未拥有的商品频次
//  3. score = min(频次/相似用户数, 1) × 0.8，confidence = min(频次/10, 1)
//  4. 生成阶段就丢弃置信度低于 MinConfidence 的候选
type Collaborative struct {
	Interactions core.InteractionRepository

	// TopKSimilarUsers 相似用户数
	TopKSimilarUsers int

	// TopKItems 最终返回的候选数
	TopKItems int

	// MinConfidence 生成阶段的置信度下限，默认 core.MinConfidenceThreshold
	MinConfidence float64
}

func (r *Collaborative) Name() string {
	return "recall.collaborative"
}

func (r *Collaborative) Recall(
	ctx context.Context,
	rctx *core.RecommendationContext,
) ([]*core.Candidate, error) {
	if r.Interactions == nil || rctx.IsAnonymous() {
		return nil, nil
	}

	topKUsers := r.TopKSimilarUsers
	if topKUsers <= 0 {
		topKUsers = defaults.DefaultTopKSimilarUsers()
	}
	topK := r.TopKItems
	if topK <= 0 {
		topK = defaults.DefaultTopKItems()
	}
	minConf := r.MinConfidence
	if minConf <= 0 {
		minConf = core.MinConfidenceThreshold
	}

	similar, err := r.Interactions.FindSimilarUsers(ctx, rctx.UserID, topKUsers)
	if err != nil {
		return nil, core.ErrRepositoryUnavailable("find similar users", err)
	}
	userIDs := make([]string, 0, len(similar))
	for _, su := range similar {
		if su.UserID == "" || su.UserID == rctx.UserID {
			continue
		}
		userIDs = append(userIDs, su.UserID)
		if len(userIDs) >= topKUsers {
			break
		}
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	owned := rctx.OwnedSet()
	popular, err := r.Interactions.GetPopularProductsByUsers(
		ctx, userIDs, core.ActionPurchase, topK+len(owned), typeConstraint(rctx),
	)
	if err != nil {
		return nil, core.ErrRepositoryUnavailable("get popular products by users", err)
	}

	out := make([]*core.Candidate, 0, len(popular))
	for _, p := range popular {
		if _, ok := owned[p.ProductID]; ok || p.Popularity <= 0 {
			continue
		}
		freq := float64(p.Popularity)
		conf := math.Min(freq/collaborativeConfidenceDivide, 1)
		if conf < minConf {
			continue
		}
		c := &core.Candidate{
			ProductID:  p.ProductID,
			Score:      math.Min(freq/float64(len(userIDs)), 1) * collaborativeScoreWeight,
			Reason:     core.ReasonCollaborative,
			Confidence: conf,
		}
		c.Metadata.ProductType = p.ProductType
		c.Metadata.Collaborative = &core.CollaborativeMeta{
			Frequency:        p.Popularity,
			SimilarUserCount: len(userIDs),
		}
		out = append(out, c)
	}

	return truncate(keepBest(out), topK), nil
}
