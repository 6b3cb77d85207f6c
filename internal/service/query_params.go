package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"marketplace-chatbot-server/pkg/util"
)

// 查询参数名
const (
	ParamIncludeAnalytics    = "include_analytics"
	ParamIncludeSales        = "include_sales"
	ParamIncludeProducts     = "include_products"
	ParamIncludeOrders       = "include_orders"
	ParamIncludeReviews      = "include_reviews"
	ParamIncludeGeoAnalytics = "include_geo_analytics"
	ParamIntentConfirmed     = "intent_confirmed"

	ParamAnalyticsStartDate = "analytics_start_date"
	ParamAnalyticsEndDate   = "analytics_end_date"
	ParamSalesFrom          = "sales_from"
	ParamSalesTo            = "sales_to"
	ParamSalesGroupBy       = "sales_group_by"
	ParamOrdersStatus       = "orders_status"
	ParamProductsCategory   = "products_category"
	ParamProductsSearch     = "products_search"
	ParamIntentType         = "type"
	ParamQuery              = "query"
	ParamProductType        = "product_type"

	ParamOrdersPage      = "orders_page"
	ParamOrdersPerPage   = "orders_per_page"
	ParamProductsPage    = "products_page"
	ParamProductsPerPage = "products_per_page"
	ParamReviewsPage     = "reviews_page"
	ParamReviewsPerPage  = "reviews_per_page"
	ParamReviewsRating   = "reviews_rating"
	ParamOrderID         = "order_id"
)

var boolParams = []string{
	ParamIncludeAnalytics,
	ParamIncludeSales,
	ParamIncludeProducts,
	ParamIncludeOrders,
	ParamIncludeReviews,
	ParamIncludeGeoAnalytics,
	ParamIntentConfirmed,
}

var stringParams = []string{
	ParamAnalyticsStartDate,
	ParamAnalyticsEndDate,
	ParamSalesFrom,
	ParamSalesTo,
	ParamSalesGroupBy,
	ParamOrdersStatus,
	ParamProductsCategory,
	ParamProductsSearch,
	ParamIntentType,
	ParamQuery,
	ParamProductType,
}

// intRange 整数参数的取值范围，max 为 0 表示不设上限
type intRange struct {
	min, max int
}

var intParams = map[string]intRange{
	ParamOrdersPage:      {min: 1},
	ParamOrdersPerPage:   {min: 1, max: 100},
	ParamProductsPage:    {min: 1},
	ParamProductsPerPage: {min: 1, max: 100},
	ParamReviewsPage:     {min: 1},
	ParamReviewsPerPage:  {min: 1, max: 100},
	ParamReviewsRating:   {min: 1, max: 5},
	ParamOrderID:         {min: 1},
}

var salesGroupBy = map[string]bool{"day": true, "week": true, "month": true, "year": true}

// QueryParams 校验后的查询参数
// 值只会是 bool、int、string 三种类型
type QueryParams map[string]any

// ValidateQueryParams 按白名单校验请求参数
// 未知参数直接丢弃，无法转换的值也丢弃
// 对结果再次调用结果不变
func ValidateQueryParams(raw map[string]any) QueryParams {
	out := QueryParams{}
	if raw == nil {
		return out
	}

	for _, key := range boolParams {
		if v, ok := raw[key]; ok {
			if b, ok := toBool(v); ok {
				out[key] = b
			}
		}
	}

	for _, key := range stringParams {
		v, ok := raw[key]
		if !ok {
			continue
		}
		s, ok := toString(v)
		if !ok {
			continue
		}
		s = util.SanitizeTextField(s)
		if key == ParamSalesGroupBy {
			s = strings.ToLower(s)
			if !salesGroupBy[s] {
				continue
			}
		}
		if s != "" {
			out[key] = s
		}
	}

	for key, rng := range intParams {
		v, ok := raw[key]
		if !ok {
			continue
		}
		n, ok := toInt(v)
		if !ok || n == 0 {
			continue
		}
		if key == ParamOrderID && n < rng.min {
			continue
		}
		if n < rng.min {
			n = rng.min
		}
		if rng.max > 0 && n > rng.max {
			n = rng.max
		}
		out[key] = n
	}

	return out
}

// Bool 读取布尔参数，不存在返回 false
func (q QueryParams) Bool(key string) bool {
	b, _ := q[key].(bool)
	return b
}

// Int 读取整数参数，不存在返回 def
func (q QueryParams) Int(key string, def int) int {
	if n, ok := q[key].(int); ok {
		return n
	}
	return def
}

// String 读取字符串参数，不存在返回空字符串
func (q QueryParams) String(key string) string {
	s, _ := q[key].(string)
	return s
}

// Clone 复制一份参数
func (q QueryParams) Clone() QueryParams {
	out := make(QueryParams, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// toBool 把各种输入转换为布尔值
func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			return true, true
		case "", "0", "false", "no", "off":
			return false, true
		}
		return false, false
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	case int64:
		return t != 0, true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false, false
		}
		return f != 0, true
	default:
		return false, false
	}
}

// toInt 把数字或数字字符串转换为整数，小数部分截断
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return floatToInt(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// toString 接受字符串和数字
func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
