package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"marketplace-chatbot-server/internal/cache"
	"marketplace-chatbot-server/internal/config"
	"marketplace-chatbot-server/internal/model"
)

const (
	// MaxMessageLength 单条消息最大字符数
	MaxMessageLength = 1000
	// RateLimitWindow 限流统计窗口
	RateLimitWindow = time.Hour
	// TimestampLayout 返回给前端的时间格式
	TimestampLayout = "2006-01-02 15:04:05"
	// fallbackActionMessage 动作执行失败时的回复
	fallbackActionMessage = "Sorry, I could not find more information."
)

// spamPatterns 垃圾消息规则，大小写不敏感
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(spam|scam|free.*money|make.*money.*fast)\b`),
	regexp.MustCompile(`(?i)\b(viagra|casino|poker|lottery)\b`),
	regexp.MustCompile(`(?i)\b(click.*here|buy.*now|limited.*time)\b`),
}

// insufficientReplies AI 表示答不上来时常见的说法
var insufficientReplies = []string{
	"i need more information",
	"i am not sure",
	"i can't answer",
	"i do not have enough context",
	"sorry, i don't have that information",
	"i am unable to",
	"i cannot",
	"i don't know",
}

// ChatRequest 一次对话请求
type ChatRequest struct {
	UserID   int64
	Role     string
	VendorID *int64
	Message  string
	Params   map[string]any // 未校验的原始参数
}

// ChatResult 对话结果
// RequiresFollowup 为 true 时表示需要用户确认意图，此时只有 Intent、Prompt 和 QueryParams 有值
type ChatResult struct {
	Response         string
	Context          *ChatContext
	Timestamp        string
	MessageID        *int64
	QueryParams      QueryParams
	Intent           *model.Intent
	Prompt           string
	RequiresFollowup bool
}

// ChatbotService 对话主流程
// 校验 -> 限流 -> 意图确认 -> 组装上下文和提示词 -> 调用 AI -> 兜底动作 -> 保存
type ChatbotService struct {
	history   *HistoryService
	contexts  *ContextBuilder
	prompts   *PromptTemplates
	detector  *IntentDetector
	intents   *IntentRegistry
	completer Completer
	publisher EventPublisher
	cfg       config.ChatbotConfig
	now       func() time.Time
}

// NewChatbotService 创建 ChatbotService 实例
// publisher 可以为 nil
func NewChatbotService(
	cfg config.ChatbotConfig,
	history *HistoryService,
	contexts *ContextBuilder,
	prompts *PromptTemplates,
	detector *IntentDetector,
	intents *IntentRegistry,
	completer Completer,
	publisher EventPublisher,
) *ChatbotService {
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultRecentLimit
	}
	return &ChatbotService{
		history:   history,
		contexts:  contexts,
		prompts:   prompts,
		detector:  detector,
		intents:   intents,
		completer: completer,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Process 处理一条用户消息
// 参数:
//   - ctx: 上下文
//   - req: 对话请求
//
// 返回:
//   - *ChatResult: 对话结果或意图确认请求
//   - error: 校验、限流或 AI 错误，可通过 ErrorCode 获取错误码
func (s *ChatbotService) Process(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	// 1. 校验输入
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if req.UserID <= 0 {
		return nil, ErrInvalidUser
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return nil, ErrInvalidRole
	}

	// 2. 垃圾消息过滤
	if !s.ValidateMessage(message) {
		return nil, ErrSpamMessage
	}

	// 3. 限流
	if !s.CheckRateLimit(ctx, req.UserID) {
		return nil, ErrRateLimitExceeded
	}

	params := ValidateQueryParams(req.Params)
	confirmed := params.Bool(ParamIntentConfirmed)

	// 4. 意图确认：需要执行动作的意图必须先得到用户确认
	var intent model.Intent
	if confirmed {
		intent = intentFromParams(params, message)
	} else {
		intent = s.detector.Detect(ctx, message)
		if action, ok := s.intents.Lookup(intent.Type); ok {
			return &ChatResult{
				Intent:           &intent,
				Prompt:           action.ConfirmPrompt(intent),
				RequiresFollowup: true,
				QueryParams:      params,
			}, nil
		}
	}

	// 5. 组装上下文和提示词
	chatCtx := s.contexts.Build(ctx, req.UserID, role, req.VendorID, params)
	recent := s.history.Recent(ctx, req.UserID, s.cfg.HistoryTurns)
	prompt := s.buildPrompt(role, chatCtx, recent, message)

	actionReq := ActionRequest{
		UserID:   req.UserID,
		Role:     role,
		VendorID: req.VendorID,
		Message:  message,
		Intent:   intent,
		Params:   params,
	}

	// 6. 调用 AI
	reply, err := s.completer.Complete(ctx, prompt, map[string]any{
		"chatbot_mode": true,
		"role":         string(role),
		"context":      chatCtx,
		"query_params": params,
	})
	reply = strings.TrimSpace(reply)

	var response string
	switch {
	case err != nil || reply == "":
		// 用户已经确认过的动作可以直接执行，不依赖 AI
		if confirmed && s.intents.IsActionable(intent.Type) {
			log.Printf("[WARN] [chatbot] AI unavailable, running confirmed action %s: user_id=%d err=%v", intent.Type, req.UserID, err)
			response = s.runAction(ctx, actionReq)
			break
		}
		if err != nil {
			log.Printf("[ERROR] [chatbot] AI request failed: user_id=%d err=%v", req.UserID, err)
			return nil, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
		}
		return nil, ErrEmptyAIResponse
	case needsAction(reply) && s.intents.IsActionable(intent.Type):
		// 7. AI 答不上来时执行动作
		response = s.runAction(ctx, actionReq)
	default:
		response = reply
	}

	// 8. 保存并返回
	result := &ChatResult{
		Response:    response,
		Context:     chatCtx,
		Timestamp:   s.now().Format(TimestampLayout),
		QueryParams: params,
	}
	if id, ok := s.history.Save(ctx, req.UserID, role, req.VendorID, message, response, chatCtx); ok {
		result.MessageID = &id
	}
	s.publish(ctx, req, role, message, response, params)

	return result, nil
}

// ValidateMessage 检查消息是否可以进入对话流程
// 空消息、超长消息和命中垃圾消息规则的消息返回 false
func (s *ChatbotService) ValidateMessage(message string) bool {
	if strings.TrimSpace(message) == "" {
		return false
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return false
	}
	for _, p := range spamPatterns {
		if p.MatchString(message) {
			return false
		}
	}
	return true
}

// CheckRateLimit 用户最近一小时的消息数是否还没到上限
func (s *ChatbotService) CheckRateLimit(ctx context.Context, userID int64) bool {
	return s.history.CountWithin(ctx, userID, RateLimitWindow) < int64(s.cfg.MaxMessagesPerSession)
}

// RemainingMessages 用户在当前窗口内还能发送的消息数
func (s *ChatbotService) RemainingMessages(ctx context.Context, userID int64) int {
	remaining := int64(s.cfg.MaxMessagesPerSession) - s.history.CountWithin(ctx, userID, RateLimitWindow)
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

// History 分页获取用户的对话历史
// 返回:
//   - []model.Conversation: 本页记录，按时间正序
//   - int64: 总条数
func (s *ChatbotService) History(ctx context.Context, userID int64, limit, offset int) ([]model.Conversation, int64) {
	return s.history.Page(ctx, userID, limit, offset), s.history.Total(ctx, userID)
}

// ClearHistory 清空用户的对话历史
func (s *ChatbotService) ClearHistory(ctx context.Context, userID int64) error {
	if !s.history.Clear(ctx, userID) {
		return ErrClearFailed
	}
	return nil
}

// Prompts 返回提示词模板，处理器用它生成错误提示
func (s *ChatbotService) Prompts() *PromptTemplates {
	return s.prompts
}

// MaxMessages 每小时消息上限
func (s *ChatbotService) MaxMessages() int {
	return s.cfg.MaxMessagesPerSession
}

// Summary 最近 days 天的对话概况
func (s *ChatbotService) Summary(ctx context.Context, userID int64, days int) *model.ConversationSummary {
	return s.history.Summary(ctx, userID, days)
}

// Suggestions 根据角色和参数返回快捷问题
func (s *ChatbotService) Suggestions(role model.Role, vendorID *int64, params QueryParams) []string {
	if role == model.RoleVendor {
		suggestions := []string{
			"How can I improve my store performance?",
			"Show me my recent orders",
			"What are my best-selling products?",
			"How can I optimize my product listings?",
			"Show me customer feedback and reviews",
			"What are my sales analytics?",
			"How can I increase my store visibility?",
		}
		if params.Bool(ParamIncludeAnalytics) {
			suggestions = append(suggestions,
				"Show me my store analytics for the last 30 days",
				"What are my top performing products?",
				"Show me geographic analytics",
			)
		}
		if params.Bool(ParamIncludeSales) {
			suggestions = append(suggestions,
				"Show me my sales reports",
				"What are my monthly sales trends?",
				"Show me my revenue breakdown",
			)
		}
		return suggestions
	}

	suggestions := []string{
		"What products do you recommend?",
		"How can I track my order?",
		"What are your return policies?",
		"Show me similar products",
		"What are the shipping options?",
		"How can I contact customer support?",
		"What are the payment methods?",
	}
	if vendorID != nil && *vendorID > 0 {
		suggestions = append(suggestions,
			"Show me this store's products",
			"What are the store reviews?",
			"Tell me about this store",
		)
	}
	return suggestions
}

// buildPrompt 拼接最终提示词
func (s *ChatbotService) buildPrompt(role model.Role, chatCtx *ChatContext, recent []model.Conversation, message string) string {
	return s.prompts.RolePrompt(role) +
		"\n\n" + chatCtx.FormatForPrompt() +
		"\n\n" + formatHistory(recent) +
		"\n\nUser: " + message + "\nAI Assistant:"
}

// runAction 执行意图动作，失败时返回兜底回复
func (s *ChatbotService) runAction(ctx context.Context, req ActionRequest) string {
	action, ok := s.intents.Lookup(req.Intent.Type)
	if !ok {
		return fallbackActionMessage
	}
	text, err := action.Execute(ctx, req)
	if err != nil {
		log.Printf("[ERROR] [chatbot] action %s failed: user_id=%d err=%v", req.Intent.Type, req.UserID, err)
		return fallbackActionMessage
	}
	return text
}

func (s *ChatbotService) publish(ctx context.Context, req ChatRequest, role model.Role, message, response string, params QueryParams) {
	if s.publisher == nil {
		return
	}
	event := &cache.MessageProcessedEvent{
		UserID:      req.UserID,
		VendorID:    req.VendorID,
		Role:        string(role),
		Message:     message,
		Response:    response,
		QueryParams: params,
		Timestamp:   s.now(),
	}
	if err := s.publisher.PublishMessageProcessed(ctx, event); err != nil {
		log.Printf("[WARN] [chatbot] failed to publish processed event: user_id=%d err=%v", req.UserID, err)
	}
}

// formatHistory 把历史对话渲染为提示词片段
func formatHistory(recent []model.Conversation) string {
	if len(recent) == 0 {
		return ""
	}
	lines := make([]string, 0, 1+2*len(recent))
	lines = append(lines, "Recent Conversation:")
	for _, c := range recent {
		lines = append(lines, "User: "+c.Message, "AI: "+c.Response)
	}
	return strings.Join(lines, "\n")
}

// needsAction 判断 AI 回复是否表示信息不足
func needsAction(reply string) bool {
	lower := strings.ToLower(reply)
	for _, phrase := range insufficientReplies {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// intentFromParams 从确认请求的参数中还原意图
// 参数里没有意图类型时按规则重新识别，消息中的参数被请求参数覆盖
func intentFromParams(params QueryParams, message string) model.Intent {
	intent := DetectIntentByRules(message)
	if t := params.String(ParamIntentType); t != "" {
		if model.IntentType(t) != intent.Type {
			intent = model.Intent{Type: model.IntentType(t)}
		}
	}
	if intent.Params == nil {
		intent.Params = map[string]string{}
	}
	if q := params.String(ParamQuery); q != "" {
		intent.Params[ParamQuery] = q
	}
	if pt := params.String(ParamProductType); pt != "" {
		intent.Params[ParamProductType] = pt
	}
	if id := params.Int(ParamOrderID, 0); id > 0 {
		intent.Params[ParamOrderID] = strconv.Itoa(id)
	}
	return intent
}
