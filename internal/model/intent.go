package model

// IntentType 意图类型
type IntentType string

// 已知的意图类型
const (
	IntentSearchProduct IntentType = "search_product" // 搜索商品
	IntentCheckOrder    IntentType = "check_order"    // 查询订单
	IntentUnknown       IntentType = "unknown"        // 无法识别
)

// Intent 从用户消息中识别出的意图
// Params 中的值统一为字符串，例如 query、order_id、product_type
type Intent struct {
	Type   IntentType        `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// Param 读取意图参数，不存在时返回空字符串
func (i Intent) Param(key string) string {
	if i.Params == nil {
		return ""
	}
	return i.Params[key]
}

// UnknownIntent 返回未识别意图
func UnknownIntent() Intent {
	return Intent{Type: IntentUnknown}
}
