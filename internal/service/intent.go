package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"marketplace-chatbot-server/internal/model"
)

var (
	searchProductPattern = regexp.MustCompile(`(?i)search (?:for )?(?:product|products) (.+)`)
	checkOrderPattern    = regexp.MustCompile(`(?i)order\s+#?(\d+)`)
	jsonObjectPattern    = regexp.MustCompile(`(?s)\{.*\}`)
)

const intentClassificationPrompt = `Classify the user's message for a marketplace assistant.
Reply with a single JSON object and nothing else, in the form:
{"intent": "<one of: %s, unknown>", "parameters": {"query": "...", "order_id": "...", "product_type": "..."}}
Only include parameters that appear in the message.

Message: %s`

// IntentDetector 识别用户消息中的意图
// 先让 AI 按 JSON 格式分类，AI 不可用或返回内容无法解析时使用正则兜底
type IntentDetector struct {
	completer Completer
	registry  *IntentRegistry
}

// NewIntentDetector 创建 IntentDetector 实例
// completer 为 nil 时只使用正则规则
func NewIntentDetector(completer Completer, registry *IntentRegistry) *IntentDetector {
	return &IntentDetector{completer: completer, registry: registry}
}

// Detect 识别意图
// 返回的意图总是有 Type，无法识别时为 unknown
func (d *IntentDetector) Detect(ctx context.Context, message string) model.Intent {
	if d.completer != nil {
		if intent, ok := d.classify(ctx, message); ok {
			return intent
		}
	}
	return DetectIntentByRules(message)
}

func (d *IntentDetector) classify(ctx context.Context, message string) (model.Intent, bool) {
	prompt := fmt.Sprintf(intentClassificationPrompt, strings.Join(d.registry.TypeNames(), ", "), message)
	reply, err := d.completer.Complete(ctx, prompt, map[string]any{"purpose": "intent_classification"})
	if err != nil {
		log.Printf("[WARN] [chatbot] intent classification failed, using rules: %v", err)
		return model.Intent{}, false
	}
	intent, err := ParseIntentReply(reply)
	if err != nil {
		log.Printf("[WARN] [chatbot] unparseable intent reply, using rules: %v", err)
		return model.Intent{}, false
	}
	return intent, true
}

// intentReply AI 分类结果的 JSON 结构
type intentReply struct {
	Intent     string         `json:"intent"`
	Parameters map[string]any `json:"parameters"`
}

// ParseIntentReply 解析 AI 返回的分类结果
// 容忍代码块标记和 JSON 前后的多余文字
func ParseIntentReply(reply string) (model.Intent, error) {
	raw := jsonObjectPattern.FindString(reply)
	if raw == "" {
		return model.Intent{}, fmt.Errorf("no JSON object in reply")
	}

	var parsed intentReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return model.Intent{}, err
	}
	name := strings.ToLower(strings.TrimSpace(parsed.Intent))
	if name == "" {
		return model.Intent{}, fmt.Errorf("missing intent field")
	}

	intent := model.Intent{Type: model.IntentType(name)}
	for k, v := range parsed.Parameters {
		s, ok := toString(v)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			if intent.Params == nil {
				intent.Params = map[string]string{}
			}
			intent.Params[k] = s
		}
	}
	return intent, nil
}

// DetectIntentByRules 使用正则规则识别意图
func DetectIntentByRules(message string) model.Intent {
	if m := searchProductPattern.FindStringSubmatch(message); m != nil {
		return model.Intent{
			Type:   model.IntentSearchProduct,
			Params: map[string]string{ParamQuery: strings.TrimSpace(m[1])},
		}
	}
	if m := checkOrderPattern.FindStringSubmatch(message); m != nil {
		return model.Intent{
			Type:   model.IntentCheckOrder,
			Params: map[string]string{ParamOrderID: m[1]},
		}
	}
	return model.UnknownIntent()
}

// ActionRequest 执行意图动作时的输入
type ActionRequest struct {
	UserID   int64
	Role     model.Role
	VendorID *int64
	Message  string
	Intent   model.Intent
	Params   QueryParams
}

// IntentAction 一个可执行的意图动作
// 注册到 IntentRegistry 的意图会在执行前要求用户确认
type IntentAction interface {
	Type() model.IntentType
	// ConfirmPrompt 返回请用户确认的提示语
	ConfirmPrompt(intent model.Intent) string
	// Execute 执行动作并返回给用户的文本
	Execute(ctx context.Context, req ActionRequest) (string, error)
}

// IntentRegistry 可执行意图的注册表
type IntentRegistry struct {
	actions map[model.IntentType]IntentAction
	order   []model.IntentType
}

// NewIntentRegistry 创建注册表并注册给定的动作
func NewIntentRegistry(actions ...IntentAction) *IntentRegistry {
	r := &IntentRegistry{actions: make(map[model.IntentType]IntentAction)}
	for _, a := range actions {
		r.Register(a)
	}
	return r
}

// Register 注册动作，同类型的动作会被替换
func (r *IntentRegistry) Register(a IntentAction) {
	if _, exists := r.actions[a.Type()]; !exists {
		r.order = append(r.order, a.Type())
	}
	r.actions[a.Type()] = a
}

// Lookup 查找意图对应的动作
func (r *IntentRegistry) Lookup(t model.IntentType) (IntentAction, bool) {
	a, ok := r.actions[t]
	return a, ok
}

// IsActionable 判断意图是否需要走确认流程
func (r *IntentRegistry) IsActionable(t model.IntentType) bool {
	_, ok := r.actions[t]
	return ok
}

// TypeNames 按注册顺序返回所有意图类型
func (r *IntentRegistry) TypeNames() []string {
	names := make([]string, 0, len(r.order))
	for _, t := range r.order {
		names = append(names, string(t))
	}
	return names
}

// ==================== 内置动作 ====================

// SearchProductAction 按关键词搜索商品
type SearchProductAction struct {
	catalog CatalogProvider
}

// NewSearchProductAction 创建商品搜索动作
func NewSearchProductAction(catalog CatalogProvider) *SearchProductAction {
	return &SearchProductAction{catalog: catalog}
}

func (a *SearchProductAction) Type() model.IntentType { return model.IntentSearchProduct }

func (a *SearchProductAction) ConfirmPrompt(intent model.Intent) string {
	if q := intent.Param(ParamQuery); q != "" {
		return fmt.Sprintf("Do you want me to search for products matching \"%s\"?", q)
	}
	return "Do you want me to search for products?"
}

// Execute 搜索商品，买家在店铺页面时只搜索该店铺，卖家只搜索自己的商品
func (a *SearchProductAction) Execute(ctx context.Context, req ActionRequest) (string, error) {
	q := model.ProductSearch{
		Query:    req.Intent.Param(ParamQuery),
		Type:     req.Intent.Param(ParamProductType),
		Category: req.Params.String(ParamProductsCategory),
		Page:     req.Params.Int(ParamProductsPage, 1),
		PerPage:  req.Params.Int(ParamProductsPerPage, 10),
	}
	if q.Query == "" {
		q.Query = req.Message
	}
	q.VendorID = scopeVendor(req)

	products, err := a.catalog.SearchProducts(ctx, q)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return "No products found matching your query.", nil
	}

	var sb strings.Builder
	sb.WriteString("Here are some products I found:\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "%s (ID: %d) - %s\n", p.Name, p.ID, p.Price)
	}
	return sb.String(), nil
}

// CheckOrderAction 查询订单详情
type CheckOrderAction struct {
	orders OrderProvider
}

// NewCheckOrderAction 创建订单查询动作
func NewCheckOrderAction(orders OrderProvider) *CheckOrderAction {
	return &CheckOrderAction{orders: orders}
}

func (a *CheckOrderAction) Type() model.IntentType { return model.IntentCheckOrder }

func (a *CheckOrderAction) ConfirmPrompt(intent model.Intent) string {
	if id := intent.Param(ParamOrderID); id != "" {
		return fmt.Sprintf("Do you want me to look up order #%s?", id)
	}
	return "Do you want me to look up your order?"
}

// Execute 查询订单
// 买家只能查看自己的订单，指定了店铺时校验订单中至少有一件该店铺的商品
func (a *CheckOrderAction) Execute(ctx context.Context, req ActionRequest) (string, error) {
	orderID, err := strconv.ParseInt(req.Intent.Param(ParamOrderID), 10, 64)
	if err != nil || orderID <= 0 {
		return "Order not found.", nil
	}

	order, err := a.orders.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "Order not found.", nil
	}
	if req.Role == model.RoleCustomer && order.CustomerID != req.UserID {
		return "Order not found.", nil
	}

	if vendorID := scopeVendor(req); vendorID > 0 {
		owned := false
		for _, item := range order.Items {
			if item.VendorID == vendorID {
				owned = true
				break
			}
		}
		if !owned {
			return "Order does not belong to this vendor.", nil
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Order #%d details:\n", order.ID)
	fmt.Fprintf(&sb, "Status: %s\n", order.Status)
	sb.WriteString("Items:\n")
	for _, item := range order.Items {
		fmt.Fprintf(&sb, "- %s x%d\n", item.Name, item.Quantity)
	}
	fmt.Fprintf(&sb, "Total: %s", order.Total)
	return sb.String(), nil
}

// scopeVendor 返回动作限定的店铺 ID，0 表示不限定
func scopeVendor(req ActionRequest) int64 {
	if req.Role == model.RoleVendor {
		return req.UserID
	}
	if req.VendorID != nil && *req.VendorID > 0 {
		return *req.VendorID
	}
	return 0
}
