package core

import "context"

// Product 是商品目录中的一条记录。
type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Category    string   `json:"category,omitempty" yaml:"category"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
	Price       float64  `json:"price,omitempty" yaml:"price"`
	ProductType string   `json:"product_type,omitempty" yaml:"product_type"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

// SimilarUser 是外部排好序的相似用户。
type SimilarUser struct {
	UserID     string
	Similarity float64
}

// PopularProduct 是一组用户内的商品热度（Popularity 为发生该行为的不同用户数）。
type PopularProduct struct {
	ProductID   string
	Popularity  int
	ProductType string
}

// TrendingProduct 是时间窗口内的热门商品，TrendScore 通常归一化到 [0,1]。
type TrendingProduct struct {
	ProductID  string
	TrendScore float64
	Category   string
}

// OrderItem 是订单内的一个商品。
type OrderItem struct {
	OrderID   string
	ProductID string
}

// SimilarityEdge 是按需计算的临时相似边（商品-商品或用户-用户），不持久化。
type SimilarityEdge struct {
	From   string
	To     string
	Weight float64
}

// ProductQuery 是按属性检索商品的条件：命中任一类目或任一标签即返回。
type ProductQuery struct {
	Categories  []string
	Tags        []string
	ProductType string
	Limit       int
}

// InteractionRepository 是用户行为数据的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（repository）实现
//   - 引擎只读取其聚合结果；相似度、热度等统计由实现方计算
//   - 调用失败时返回错误，由策略自行降级为空结果
type InteractionRepository interface {
	// AppendInteraction 追加一条行为事件（Tracker 写路径）
	AppendInteraction(ctx context.Context, event InteractionEvent) error

	// GetUserInteractions 获取用户最近的某类行为，按时间倒序，最多 limit 条
	GetUserInteractions(ctx context.Context, userID string, action Action, limit int) ([]InteractionEvent, error)

	// GetUserPurchaseHistory 获取用户购买过的商品
	GetUserPurchaseHistory(ctx context.Context, userID string) ([]string, error)

	// FindSimilarUsers 获取相似用户（外部排序）
	FindSimilarUsers(ctx context.Context, userID string, limit int) ([]SimilarUser, error)

	// GetPopularProductsByUsers 统计一组用户在某类行为上的热门商品，productType 为空表示不限
	GetPopularProductsByUsers(ctx context.Context, userIDs []string, action Action, limit int, productType string) ([]PopularProduct, error)

	// GetTrendingProducts 获取最近 days 天的热门商品，productType 为空表示不限
	GetTrendingProducts(ctx context.Context, days, limit int, productType string) ([]TrendingProduct, error)

	// GetOrderItemGroups 获取订单-商品明细，用于共现统计
	GetOrderItemGroups(ctx context.Context, limit int) ([]OrderItem, error)
}

// CatalogRepository 是商品目录的领域接口。
type CatalogRepository interface {
	// GetProductCatalogDetails 批量获取商品详情，不存在的 ID 直接忽略
	GetProductCatalogDetails(ctx context.Context, productIDs []string) ([]Product, error)

	// FindSimilarProducts 获取相似商品（不含自身），sameTypeOnly 时只返回同类型商品
	FindSimilarProducts(ctx context.Context, productID string, limit int, sameTypeOnly bool) ([]Product, error)

	// CalculateContentSimilarity 计算两个商品的内容相似度，范围 [0,100]
	CalculateContentSimilarity(ctx context.Context, productA, productB string) (float64, error)

	// SearchProducts 按类目/标签检索商品
	SearchProducts(ctx context.Context, query ProductQuery) ([]Product, error)
}

// ProductIndex 把商品列表按 ID 建索引。
func ProductIndex(products []Product) map[string]Product {
	idx := make(map[string]Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx
}
