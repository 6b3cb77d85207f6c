package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"marketplace-chatbot-server/internal/model"
	"marketplace-chatbot-server/pkg/util"
)

// recentOrdersLimit 上下文中携带的最近订单数
const recentOrdersLimit = 5

// AnalyticsContext 分析数据，Geographic 只在请求时才有
type AnalyticsContext struct {
	General    []model.AnalyticsRow `json:"general,omitempty"`
	Geographic []model.AnalyticsRow `json:"geographic,omitempty"`
}

// ChatContext 一次对话使用的上下文
// 切片字段为 nil 表示没有请求或获取失败，非 nil 的空切片表示获取成功但没有数据
type ChatContext struct {
	UserID          int64                  `json:"user_id"`
	Role            model.Role             `json:"role"`
	VendorID        *int64                 `json:"vendor_id,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
	UserInfo        string                 `json:"user_info,omitempty"`
	StoreInfo       string                 `json:"store_info,omitempty"`
	DashboardStats  string                 `json:"dashboard_stats,omitempty"`
	Analytics       *AnalyticsContext      `json:"analytics,omitempty"`
	SalesReports    []model.SalesReport    `json:"sales_reports,omitempty"`
	ProductsSummary []model.ProductSummary `json:"products_summary,omitempty"`
	OrdersSummary   []model.OrderSummary   `json:"orders_summary,omitempty"`
	StoreProducts   []model.ProductSummary `json:"store_products,omitempty"`
	StoreReviews    []model.Review         `json:"store_reviews,omitempty"`
	RecentOrders    string                 `json:"recent_orders,omitempty"`
	QueryParams     QueryParams            `json:"query_params,omitempty"`
}

// ContextBuilder 从宿主商城拉取数据，组装对话上下文
// 任何一项数据获取失败都只记录日志并跳过该项
type ContextBuilder struct {
	accounts AccountProvider
	stores   StoreProvider
	orders   OrderProvider
	now      func() time.Time
}

// NewContextBuilder 创建 ContextBuilder 实例
func NewContextBuilder(accounts AccountProvider, stores StoreProvider, orders OrderProvider) *ContextBuilder {
	return &ContextBuilder{accounts: accounts, stores: stores, orders: orders, now: time.Now}
}

// Build 组装对话上下文
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - role: 当前角色
//   - vendorID: 买家所在店铺，卖家角色忽略此参数
//   - params: 已校验的查询参数
//
// 返回:
//   - *ChatContext: 组装好的上下文，不会为 nil
func (b *ContextBuilder) Build(ctx context.Context, userID int64, role model.Role, vendorID *int64, params QueryParams) *ChatContext {
	cc := &ChatContext{
		UserID:      userID,
		Role:        role,
		VendorID:    vendorID,
		Timestamp:   b.now(),
		QueryParams: params,
	}

	cc.UserInfo = b.userInfo(ctx, userID)

	switch role {
	case model.RoleVendor:
		b.buildVendor(ctx, cc, userID, params)
	case model.RoleCustomer:
		b.buildCustomer(ctx, cc, userID, vendorID, params)
	}
	return cc
}

func (b *ContextBuilder) userInfo(ctx context.Context, userID int64) string {
	account, err := b.accounts.GetAccount(ctx, userID)
	if err != nil {
		logSectionError("user_info", userID, err)
		return ""
	}
	if account == nil {
		return ""
	}
	lines := []string{
		"Name: " + account.DisplayName,
		"Email: " + account.Email,
	}
	if !account.Registered.IsZero() {
		lines = append(lines, "Registered: "+account.Registered.Format("2006-01-02"))
	}
	return strings.Join(lines, "\n")
}

// buildVendor 卖家上下文：店铺信息和后台统计必带，其余按参数开关
func (b *ContextBuilder) buildVendor(ctx context.Context, cc *ChatContext, vendorID int64, params QueryParams) {
	if info, err := b.stores.GetStoreInfo(ctx, vendorID); err != nil {
		logSectionError("store_info", vendorID, err)
	} else if info != nil {
		cc.StoreInfo = formatStoreInfo(info)
	}

	if stats, err := b.stores.GetDashboardStats(ctx, vendorID); err != nil {
		logSectionError("dashboard_stats", vendorID, err)
	} else if stats != nil {
		cc.DashboardStats = formatDashboardStats(stats)
	}

	if params.Bool(ParamIncludeAnalytics) {
		q := model.AnalyticsQuery{
			StartDate: stringOr(params.String(ParamAnalyticsStartDate), "30daysAgo"),
			EndDate:   stringOr(params.String(ParamAnalyticsEndDate), "today"),
		}
		general, err := b.stores.GetAnalytics(ctx, vendorID, q)
		if err != nil {
			logSectionError("analytics", vendorID, err)
		} else {
			analytics := &AnalyticsContext{General: nonNil(general)}
			if params.Bool(ParamIncludeGeoAnalytics) {
				q.Geographic = true
				geo, err := b.stores.GetAnalytics(ctx, vendorID, q)
				if err != nil {
					logSectionError("geo_analytics", vendorID, err)
				} else {
					analytics.Geographic = nonNil(geo)
				}
			}
			cc.Analytics = analytics
		}
	}

	if params.Bool(ParamIncludeSales) {
		q := model.SalesQuery{
			From:    params.String(ParamSalesFrom),
			To:      params.String(ParamSalesTo),
			GroupBy: stringOr(params.String(ParamSalesGroupBy), "day"),
		}
		if reports, err := b.stores.GetSalesReports(ctx, vendorID, q); err != nil {
			logSectionError("sales_reports", vendorID, err)
		} else {
			cc.SalesReports = nonNil(reports)
		}
	}

	if params.Bool(ParamIncludeProducts) {
		if products, err := b.stores.GetProductsSummary(ctx, vendorID); err != nil {
			logSectionError("products_summary", vendorID, err)
		} else {
			cc.ProductsSummary = nonNil(products)
		}
	}

	if params.Bool(ParamIncludeOrders) {
		q := model.OrdersQuery{
			Page:    params.Int(ParamOrdersPage, 1),
			PerPage: params.Int(ParamOrdersPerPage, 10),
			Status:  params.String(ParamOrdersStatus),
		}
		if orders, err := b.stores.GetOrdersSummary(ctx, vendorID, q); err != nil {
			logSectionError("orders_summary", vendorID, err)
		} else {
			cc.OrdersSummary = nonNil(orders)
		}
	}

	cc.RecentOrders = b.recentOrders(ctx, model.OrderFilter{VendorID: vendorID, Limit: recentOrdersLimit}, vendorID)
}

// buildCustomer 买家上下文：最近订单必带，指定店铺时附带店铺数据
func (b *ContextBuilder) buildCustomer(ctx context.Context, cc *ChatContext, userID int64, vendorID *int64, params QueryParams) {
	cc.RecentOrders = b.recentOrders(ctx, model.OrderFilter{CustomerID: userID, Limit: recentOrdersLimit}, userID)

	if vendorID == nil || *vendorID <= 0 {
		return
	}
	storeID := *vendorID

	if info, err := b.stores.GetStoreInfo(ctx, storeID); err != nil {
		logSectionError("store_info", storeID, err)
	} else if info != nil {
		cc.StoreInfo = formatStoreInfo(info)
	}

	if params.Bool(ParamIncludeProducts) {
		q := model.ProductsQuery{
			Page:     params.Int(ParamProductsPage, 1),
			PerPage:  params.Int(ParamProductsPerPage, 10),
			Category: params.String(ParamProductsCategory),
			Search:   params.String(ParamProductsSearch),
		}
		if products, err := b.stores.GetStoreProducts(ctx, storeID, q); err != nil {
			logSectionError("store_products", storeID, err)
		} else {
			cc.StoreProducts = nonNil(products)
		}
	}

	if params.Bool(ParamIncludeReviews) {
		q := model.ReviewsQuery{
			Page:    params.Int(ParamReviewsPage, 1),
			PerPage: params.Int(ParamReviewsPerPage, 10),
			Rating:  params.Int(ParamReviewsRating, 0),
		}
		if reviews, err := b.stores.GetStoreReviews(ctx, storeID, q); err != nil {
			logSectionError("store_reviews", storeID, err)
		} else {
			cc.StoreReviews = nonNil(reviews)
		}
	}
}

func (b *ContextBuilder) recentOrders(ctx context.Context, filter model.OrderFilter, subject int64) string {
	orders, err := b.orders.GetRecentOrders(ctx, filter)
	if err != nil {
		logSectionError("recent_orders", subject, err)
		return ""
	}
	if len(orders) == 0 {
		return "No recent orders."
	}
	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, fmt.Sprintf("Order #%d - %s - %s - %s", o.ID, o.Status, o.Total, o.Date.Format("2006-01-02")))
	}
	return strings.Join(lines, "\n")
}

// FormatForPrompt 把上下文渲染为提示词片段，各部分之间空一行
func (cc *ChatContext) FormatForPrompt() string {
	var parts []string
	add := func(title, body string) {
		if body != "" {
			parts = append(parts, title+"\n"+body)
		}
	}

	add("Store Information:", cc.StoreInfo)
	add("User Information:", cc.UserInfo)
	add("Dashboard Statistics:", cc.DashboardStats)
	if cc.Analytics != nil {
		add("Analytics Data:", formatAnalytics(cc.Analytics))
	}
	if cc.SalesReports != nil {
		add("Sales Reports:", formatSalesReports(cc.SalesReports))
	}
	if cc.ProductsSummary != nil {
		add("Products Summary:", formatProducts(cc.ProductsSummary, "No products summary available."))
	}
	if cc.OrdersSummary != nil {
		add("Orders Summary:", formatOrders(cc.OrdersSummary))
	}
	if cc.StoreProducts != nil {
		add("Store Products:", formatProducts(cc.StoreProducts, "No store products available."))
	}
	if cc.StoreReviews != nil {
		add("Store Reviews:", formatReviews(cc.StoreReviews))
	}
	add("Recent Orders:", cc.RecentOrders)

	return strings.Join(parts, "\n\n")
}

func formatStoreInfo(info *model.StoreInfo) string {
	var fields []string
	fields = appendField(fields, "Store Name", info.Name)
	fields = appendField(fields, "Address", info.Address)
	fields = appendField(fields, "Phone", info.Phone)
	fields = appendField(fields, "Email", info.Email)
	fields = appendField(fields, "Store URL", info.URL)
	return strings.Join(fields, "\n")
}

func formatDashboardStats(stats *model.DashboardStats) string {
	var fields []string
	fields = appendField(fields, "Balance", stats.Balance)
	fields = appendField(fields, "Total Orders", countString(stats.TotalOrders))
	fields = appendField(fields, "Total Products", countString(stats.TotalProducts))
	fields = appendField(fields, "Total Sales", stats.TotalSales)
	fields = appendField(fields, "Total Earnings", stats.TotalEarnings)
	fields = appendField(fields, "Store Views", countString(stats.StoreViews))
	return strings.Join(fields, "\n")
}

func formatAnalytics(a *AnalyticsContext) string {
	var parts []string
	if a.General != nil {
		parts = append(parts, "General Analytics:\n"+formatAnalyticsRows(a.General))
	}
	if a.Geographic != nil {
		parts = append(parts, "Geographic Analytics:\n"+formatAnalyticsRows(a.Geographic))
	}
	return strings.Join(parts, "\n\n")
}

func formatAnalyticsRows(rows []model.AnalyticsRow) string {
	if len(rows) == 0 {
		return "No analytics data available."
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var fields []string
		if len(row.Dimensions) > 0 {
			fields = append(fields, "Dimensions: "+strings.Join(row.Dimensions, ", "))
		}
		if len(row.Metrics) > 0 {
			fields = append(fields, "Metrics: "+strings.Join(row.Metrics, ", "))
		}
		lines = appendLine(lines, fields)
	}
	return strings.Join(lines, "\n")
}

func formatSalesReports(reports []model.SalesReport) string {
	if len(reports) == 0 {
		return "No sales reports available."
	}
	lines := make([]string, 0, len(reports))
	for _, r := range reports {
		var fields []string
		fields = appendField(fields, "Date", r.Date)
		fields = appendField(fields, "Sales", r.Sales)
		fields = appendField(fields, "Orders", countString(r.Orders))
		lines = appendLine(lines, fields)
	}
	return strings.Join(lines, "\n")
}

func formatProducts(products []model.ProductSummary, empty string) string {
	if len(products) == 0 {
		return empty
	}
	lines := make([]string, 0, len(products))
	for _, p := range products {
		var fields []string
		fields = appendField(fields, "Name", p.Name)
		fields = appendField(fields, "Price", p.Price)
		fields = appendField(fields, "Stock", p.Stock)
		lines = appendLine(lines, fields)
	}
	return strings.Join(lines, "\n")
}

func formatOrders(orders []model.OrderSummary) string {
	if len(orders) == 0 {
		return "No orders summary available."
	}
	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		var fields []string
		fields = appendField(fields, "Order ID", intString(o.ID))
		fields = appendField(fields, "Status", o.Status)
		fields = appendField(fields, "Total", o.Total)
		if !o.Date.IsZero() {
			fields = append(fields, "Date: "+o.Date.Format("2006-01-02"))
		}
		lines = appendLine(lines, fields)
	}
	return strings.Join(lines, "\n")
}

func formatReviews(reviews []model.Review) string {
	if len(reviews) == 0 {
		return "No store reviews available."
	}
	lines := make([]string, 0, len(reviews))
	for _, r := range reviews {
		var fields []string
		if r.Rating > 0 {
			fields = append(fields, "Rating: "+strconv.Itoa(r.Rating))
		}
		if r.Comment != "" {
			fields = append(fields, "Comment: "+util.TruncateWithEllipsis(r.Comment, 100))
		}
		if !r.Date.IsZero() {
			fields = append(fields, "Date: "+r.Date.Format("2006-01-02"))
		}
		lines = appendLine(lines, fields)
	}
	return strings.Join(lines, "\n")
}

// appendField 追加 "名称: 值" 格式的一行，空值跳过
func appendField(fields []string, name, value string) []string {
	if value == "" {
		return fields
	}
	return append(fields, name+": "+value)
}

// appendLine 把一条记录的字段用 " | " 连接，没有字段的记录跳过
func appendLine(lines, fields []string) []string {
	if len(fields) == 0 {
		return lines
	}
	return append(lines, strings.Join(fields, " | "))
}

// countString 渲染计数，nil 表示没有数据，0 照常输出
func countString(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func intString(n int64) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

func stringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func logSectionError(section string, subject int64, err error) {
	log.Printf("[WARN] [chatbot] context section %s skipped: id=%d err=%v", section, subject, err)
}
