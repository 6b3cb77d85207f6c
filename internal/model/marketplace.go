package model

import "time"

// 以下结构是宿主商城 API 返回的数据形状
// 不落库，只用于构建上下文和执行意图动作

// Account 商城用户信息
type Account struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Registered  time.Time `json:"registered"`
	IsSeller    bool      `json:"is_seller"`
}

// StoreInfo 店铺基本信息
type StoreInfo struct {
	ID      int64  `json:"id"`
	Name    string `json:"store_name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	URL     string `json:"shop_url"`
}

// DashboardStats 卖家后台统计
// 计数字段为 nil 表示接口没有返回
type DashboardStats struct {
	Balance       string `json:"balance"`
	TotalOrders   *int64 `json:"total_orders"`
	TotalProducts *int64 `json:"total_products"`
	TotalSales    string `json:"total_sales"`
	TotalEarnings string `json:"total_earnings"`
	StoreViews    *int64 `json:"store_views"`
}

// AnalyticsRow 一行分析数据
type AnalyticsRow struct {
	Dimensions []string `json:"dimensions"`
	Metrics    []string `json:"metrics"`
}

// SalesReport 一个统计周期的销售数据
type SalesReport struct {
	Date   string `json:"date"`
	Sales  string `json:"sales"`
	Orders *int64 `json:"orders"`
}

// ProductSummary 商品概要
type ProductSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Stock string `json:"stock"`
}

// OrderSummary 订单概要
type OrderSummary struct {
	ID     int64     `json:"id"`
	Status string    `json:"status"`
	Total  string    `json:"total"`
	Date   time.Time `json:"date"`
}

// Review 店铺评价
type Review struct {
	Rating  int       `json:"rating"`
	Comment string    `json:"comment"`
	Date    time.Time `json:"date"`
}

// OrderItem 订单行
type OrderItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	ProductID int64  `json:"product_id"`
	VendorID  int64  `json:"vendor_id"`
}

// Order 订单详情
type Order struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customer_id"`
	Status     string      `json:"status"`
	Total      string      `json:"total"`
	Items      []OrderItem `json:"items"`
}

// Product 搜索结果中的商品
type Product struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// AnalyticsQuery 分析数据查询条件
type AnalyticsQuery struct {
	StartDate  string
	EndDate    string
	Geographic bool // 按地区维度统计
}

// SalesQuery 销售报表查询条件
type SalesQuery struct {
	From    string
	To      string
	GroupBy string // day / week / month / year
}

// OrdersQuery 卖家订单列表查询条件
type OrdersQuery struct {
	Page    int
	PerPage int
	Status  string
}

// ProductsQuery 店铺商品列表查询条件
type ProductsQuery struct {
	Page     int
	PerPage  int
	Category string
	Search   string
}

// ReviewsQuery 店铺评价查询条件
type ReviewsQuery struct {
	Page    int
	PerPage int
	Rating  int
}

// OrderFilter 最近订单查询条件
// VendorID 和 CustomerID 二选一
type OrderFilter struct {
	VendorID   int64
	CustomerID int64
	Limit      int
}

// ProductSearch 商品搜索条件
type ProductSearch struct {
	Query    string
	VendorID int64
	Type     string
	Category string
	Page     int
	PerPage  int
}
