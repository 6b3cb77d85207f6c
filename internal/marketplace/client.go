// Package marketplace 封装与宿主商城 REST API 的交互
// 为聊天机器人提供用户、店铺、订单和商品数据
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketplace-chatbot-server/internal/config"
	"marketplace-chatbot-server/internal/model"
)

// apiPrefix 商城侧聊天机器人接口的路径前缀
const apiPrefix = "/chatbot/v1"

// errNotFound 资源不存在，由各方法转换为 nil 结果
var errNotFound = errors.New("marketplace resource not found")

// Client 商城 API 客户端
// baseURL: 例如 http://localhost/wp-json
// apiToken: 服务间调用的 Bearer Token，可以为空
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewClient 创建商城 API 客户端
func NewClient(cfg config.MarketplaceConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// --- 用户 ---

// GetAccount 获取用户信息，用户不存在返回 nil, nil
func (c *Client) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	var acc model.Account
	if err := c.get(ctx, fmt.Sprintf("/users/%d", userID), nil, &acc); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &acc, nil
}

// --- 店铺 ---

// GetStoreInfo 获取店铺信息，店铺不存在返回 nil, nil
func (c *Client) GetStoreInfo(ctx context.Context, vendorID int64) (*model.StoreInfo, error) {
	var info model.StoreInfo
	if err := c.get(ctx, storePath(vendorID, ""), nil, &info); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

// GetDashboardStats 获取卖家后台统计
func (c *Client) GetDashboardStats(ctx context.Context, vendorID int64) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	if err := c.get(ctx, storePath(vendorID, "/dashboard"), nil, &stats); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

// GetAnalytics 获取店铺分析数据
func (c *Client) GetAnalytics(ctx context.Context, vendorID int64, q model.AnalyticsQuery) ([]model.AnalyticsRow, error) {
	params := url.Values{}
	setString(params, "start_date", q.StartDate)
	setString(params, "end_date", q.EndDate)
	if q.Geographic {
		params.Set("dimension", "country")
	}
	var rows []model.AnalyticsRow
	err := c.get(ctx, storePath(vendorID, "/analytics"), params, &rows)
	return rows, err
}

// GetSalesReports 获取销售报表
func (c *Client) GetSalesReports(ctx context.Context, vendorID int64, q model.SalesQuery) ([]model.SalesReport, error) {
	params := url.Values{}
	setString(params, "from", q.From)
	setString(params, "to", q.To)
	setString(params, "group_by", q.GroupBy)
	var reports []model.SalesReport
	err := c.get(ctx, storePath(vendorID, "/reports/sales"), params, &reports)
	return reports, err
}

// GetProductsSummary 获取卖家商品概要
func (c *Client) GetProductsSummary(ctx context.Context, vendorID int64) ([]model.ProductSummary, error) {
	var products []model.ProductSummary
	err := c.get(ctx, storePath(vendorID, "/products/summary"), nil, &products)
	return products, err
}

// GetOrdersSummary 获取卖家订单列表
func (c *Client) GetOrdersSummary(ctx context.Context, vendorID int64, q model.OrdersQuery) ([]model.OrderSummary, error) {
	params := url.Values{}
	setInt(params, "page", q.Page)
	setInt(params, "per_page", q.PerPage)
	setString(params, "status", q.Status)
	var orders []model.OrderSummary
	err := c.get(ctx, storePath(vendorID, "/orders"), params, &orders)
	return orders, err
}

// GetStoreProducts 获取店铺商品列表
func (c *Client) GetStoreProducts(ctx context.Context, vendorID int64, q model.ProductsQuery) ([]model.ProductSummary, error) {
	params := url.Values{}
	setInt(params, "page", q.Page)
	setInt(params, "per_page", q.PerPage)
	setString(params, "category", q.Category)
	setString(params, "search", q.Search)
	var products []model.ProductSummary
	err := c.get(ctx, storePath(vendorID, "/products"), params, &products)
	return products, err
}

// GetStoreReviews 获取店铺评价
func (c *Client) GetStoreReviews(ctx context.Context, vendorID int64, q model.ReviewsQuery) ([]model.Review, error) {
	params := url.Values{}
	setInt(params, "page", q.Page)
	setInt(params, "per_page", q.PerPage)
	setInt(params, "rating", q.Rating)
	var reviews []model.Review
	err := c.get(ctx, storePath(vendorID, "/reviews"), params, &reviews)
	return reviews, err
}

// --- 订单 ---

// GetRecentOrders 获取最近订单，按卖家或买家过滤
func (c *Client) GetRecentOrders(ctx context.Context, filter model.OrderFilter) ([]model.OrderSummary, error) {
	params := url.Values{}
	setInt64(params, "vendor_id", filter.VendorID)
	setInt64(params, "customer_id", filter.CustomerID)
	setInt(params, "limit", filter.Limit)
	var orders []model.OrderSummary
	err := c.get(ctx, "/orders", params, &orders)
	return orders, err
}

// GetOrder 获取订单详情，订单不存在返回 nil, nil
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	var order model.Order
	if err := c.get(ctx, fmt.Sprintf("/orders/%d", orderID), nil, &order); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// --- 商品 ---

// SearchProducts 搜索商品
func (c *Client) SearchProducts(ctx context.Context, q model.ProductSearch) ([]model.Product, error) {
	params := url.Values{}
	setString(params, "search", q.Query)
	setInt64(params, "vendor_id", q.VendorID)
	setString(params, "type", q.Type)
	setString(params, "category", q.Category)
	setInt(params, "page", q.Page)
	setInt(params, "per_page", q.PerPage)
	var products []model.Product
	err := c.get(ctx, "/products", params, &products)
	return products, err
}

// --- 通用请求封装 ---

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + apiPrefix + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read marketplace response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("marketplace returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode marketplace response: %w", err)
	}
	return nil
}

func storePath(vendorID int64, suffix string) string {
	return fmt.Sprintf("/stores/%d%s", vendorID, suffix)
}

func setString(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setInt(v url.Values, key string, value int) {
	if value > 0 {
		v.Set(key, strconv.Itoa(value))
	}
}

func setInt64(v url.Values, key string, value int64) {
	if value > 0 {
		v.Set(key, strconv.FormatInt(value, 10))
	}
}
