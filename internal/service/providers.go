package service

import (
	"context"

	"marketplace-chatbot-server/internal/cache"
	"marketplace-chatbot-server/internal/model"
)

// 宿主商城数据提供者
// 由 marketplace.Client 实现，测试中使用假实现

// AccountProvider 用户账号信息
type AccountProvider interface {
	// GetAccount 获取用户信息，用户不存在时返回 nil, nil
	GetAccount(ctx context.Context, userID int64) (*model.Account, error)
}

// StoreProvider 店铺及卖家后台数据
type StoreProvider interface {
	GetStoreInfo(ctx context.Context, vendorID int64) (*model.StoreInfo, error)
	GetDashboardStats(ctx context.Context, vendorID int64) (*model.DashboardStats, error)
	GetAnalytics(ctx context.Context, vendorID int64, q model.AnalyticsQuery) ([]model.AnalyticsRow, error)
	GetSalesReports(ctx context.Context, vendorID int64, q model.SalesQuery) ([]model.SalesReport, error)
	GetProductsSummary(ctx context.Context, vendorID int64) ([]model.ProductSummary, error)
	GetOrdersSummary(ctx context.Context, vendorID int64, q model.OrdersQuery) ([]model.OrderSummary, error)
	GetStoreProducts(ctx context.Context, vendorID int64, q model.ProductsQuery) ([]model.ProductSummary, error)
	GetStoreReviews(ctx context.Context, vendorID int64, q model.ReviewsQuery) ([]model.Review, error)
}

// OrderProvider 订单数据
type OrderProvider interface {
	GetRecentOrders(ctx context.Context, filter model.OrderFilter) ([]model.OrderSummary, error)
	// GetOrder 获取订单详情，订单不存在时返回 nil, nil
	GetOrder(ctx context.Context, orderID int64) (*model.Order, error)
}

// CatalogProvider 商品搜索
type CatalogProvider interface {
	SearchProducts(ctx context.Context, q model.ProductSearch) ([]model.Product, error)
}

// Completer AI 补全引擎
type Completer interface {
	// Complete 发送提示词并返回回复文本
	Complete(ctx context.Context, prompt string, metadata map[string]any) (string, error)
}

// EventPublisher 对话完成事件的发布者
type EventPublisher interface {
	PublishMessageProcessed(ctx context.Context, event *cache.MessageProcessedEvent) error
}

// RoleCache 角色偏好缓存
type RoleCache interface {
	GetPreferredRole(ctx context.Context, userID int64) (model.Role, error)
	SetPreferredRole(ctx context.Context, userID int64, role model.Role) error
}
