// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"marketplace-chatbot-server/internal/config"
	"marketplace-chatbot-server/internal/model"
	"marketplace-chatbot-server/internal/service"
	"marketplace-chatbot-server/pkg/response"
	"marketplace-chatbot-server/pkg/util"
)

// 请求体中不属于查询参数的字段
var reservedChatFields = map[string]bool{
	"message":      true,
	"role":         true,
	"vendor_id":    true,
	"query_params": true,
}

// ChatbotHandler 聊天机器人请求处理器
type ChatbotHandler struct {
	chatbot *service.ChatbotService
	roles   *service.RoleService
	cfg     config.ChatbotConfig
}

// NewChatbotHandler 创建 ChatbotHandler 实例
func NewChatbotHandler(chatbot *service.ChatbotService, roles *service.RoleService, cfg config.ChatbotConfig) *ChatbotHandler {
	return &ChatbotHandler{
		chatbot: chatbot,
		roles:   roles,
		cfg:     cfg,
	}
}

// RegisterRoutes 注册聊天机器人路由
func (h *ChatbotHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat", h.Chat)
	rg.GET("/history", h.History)
	rg.GET("/suggestions", h.Suggestions)
	rg.POST("/role-switch", h.SwitchRole)
	rg.POST("/clear-history", h.ClearHistory)
	rg.GET("/config", h.Config)
}

// Chat 处理一条用户消息
// @Summary 发送消息
// @Description 发送消息给聊天机器人；需要执行动作的意图会先返回确认请求
// @Tags 聊天
// @Security Bearer
// @Accept json
// @Produce json
// @Router /api/v1/chatbot/chat [post]
func (h *ChatbotHandler) Chat(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok || !h.requireEnabled(c) {
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		response.InvalidMessage(c, "Invalid message. Please check your input.")
		return
	}

	message, _ := body["message"].(string)
	role, ok := h.resolveRole(c, userID, stringField(body, "role"))
	if !ok {
		return
	}

	req := service.ChatRequest{
		UserID:   userID,
		Role:     role,
		VendorID: vendorIDField(body["vendor_id"]),
		Message:  util.SanitizeTextarea(message),
		Params:   collectParams(body),
	}

	result, err := h.chatbot.Process(c.Request.Context(), req)
	if err != nil {
		h.writeChatError(c, err)
		return
	}

	if result.RequiresFollowup {
		response.Success(c, gin.H{
			"intent":            intentPayload(result.Intent),
			"message":           result.Prompt,
			"requires_followup": true,
			"query_params":      result.QueryParams,
		})
		return
	}

	response.Success(c, gin.H{
		"response":     result.Response,
		"context":      result.Context,
		"timestamp":    result.Timestamp,
		"message_id":   result.MessageID,
		"query_params": result.QueryParams,
	})
}

// History 分页获取对话历史
// @Summary 对话历史
// @Tags 聊天
// @Security Bearer
// @Produce json
// @Param limit query int false "每页数量" default(20)
// @Param offset query int false "偏移量" default(0)
// @Router /api/v1/chatbot/history [get]
func (h *ChatbotHandler) History(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		response.BadRequest(c, "limit must be between 1 and 100")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.BadRequest(c, "offset must not be negative")
		return
	}

	messages, total := h.chatbot.History(c.Request.Context(), userID, limit, offset)
	response.Success(c, gin.H{
		"messages": messages,
		"total":    total,
	})
}

// Suggestions 获取快捷问题
// @Summary 快捷问题
// @Tags 聊天
// @Security Bearer
// @Produce json
// @Param role query string false "角色，默认使用用户的默认角色"
// @Param vendor_id query int false "店铺ID"
// @Router /api/v1/chatbot/suggestions [get]
func (h *ChatbotHandler) Suggestions(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok || !h.requireEnabled(c) {
		return
	}

	var role model.Role
	if raw := c.Query("role"); raw != "" {
		r, valid := model.ParseRole(raw)
		if !valid {
			response.BadRequest(c, "invalid role specified")
			return
		}
		role = r
	} else {
		role = h.roles.DefaultRole(c.Request.Context(), userID)
	}

	vendorID := vendorIDField(c.Query("vendor_id"))

	raw := make(map[string]any)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 && !reservedChatFields[key] {
			raw[key] = values[0]
		}
	}
	params := service.ValidateQueryParams(raw)

	response.Success(c, gin.H{
		"suggestions": h.chatbot.Suggestions(role, vendorID, params),
		"role":        role,
		"context": gin.H{
			"user_id":   userID,
			"role":      role,
			"vendor_id": vendorID,
		},
		"query_params": params,
	})
}

// SwitchRoleRequest 切换角色请求
type SwitchRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SwitchRole 切换对话角色
// @Summary 切换角色
// @Tags 聊天
// @Security Bearer
// @Accept json
// @Produce json
// @Param body body SwitchRoleRequest true "目标角色"
// @Router /api/v1/chatbot/role-switch [post]
func (h *ChatbotHandler) SwitchRole(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok || !h.requireEnabled(c) {
		return
	}

	var req SwitchRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "role is required")
		return
	}

	role, err := h.roles.SwitchRole(c.Request.Context(), userID, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrRoleNotPermitted) {
			response.InvalidRole(c, "You do not have permission to use this role.")
			return
		}
		response.InternalError(c, "Failed to switch role.")
		return
	}

	response.Success(c, gin.H{
		"success": true,
		"role":    role,
		"message": fmt.Sprintf("Switched to %s mode", role),
	})
}

// ClearHistory 清空对话历史
// @Summary 清空历史
// @Tags 聊天
// @Security Bearer
// @Produce json
// @Router /api/v1/chatbot/clear-history [post]
func (h *ChatbotHandler) ClearHistory(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.chatbot.ClearHistory(c.Request.Context(), userID); err != nil {
		response.ClearFailed(c, "Failed to clear chat history.")
		return
	}

	response.Success(c, gin.H{
		"success": true,
		"message": "Chat history cleared successfully.",
	})
}

// RoleInfo 角色说明
type RoleInfo struct {
	Role         model.Role `json:"role"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Capabilities []string   `json:"capabilities"`
}

// Config 获取前端挂件需要的配置
// @Summary 挂件配置
// @Tags 聊天
// @Security Bearer
// @Produce json
// @Router /api/v1/chatbot/config [get]
func (h *ChatbotHandler) Config(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	available := h.roles.AvailableRoles(ctx, userID)
	roles := make([]RoleInfo, 0, len(available))
	for _, r := range available {
		roles = append(roles, RoleInfo{
			Role:         r,
			Name:         h.roles.DisplayName(r),
			Description:  h.roles.Description(r),
			Capabilities: h.roles.Capabilities(r),
		})
	}

	response.Success(c, gin.H{
		"enabled":                  h.cfg.Enabled,
		"welcome_message":          h.cfg.WelcomeMessage,
		"widget_position":          h.cfg.WidgetPosition,
		"default_role":             h.roles.DefaultRole(ctx, userID),
		"available_roles":          roles,
		"max_messages_per_session": h.chatbot.MaxMessages(),
		"remaining_messages":       h.chatbot.RemainingMessages(ctx, userID),
		"summary":                  h.chatbot.Summary(ctx, userID, 7),
		"role_statistics":          h.roles.Statistics(ctx, userID),
	})
}

// currentUser 读取认证中间件写入的用户 ID
func (h *ChatbotHandler) currentUser(c *gin.Context) (int64, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Please log in first.")
		return 0, false
	}
	id, ok := userID.(int64)
	if !ok || id <= 0 {
		response.Unauthorized(c, "Please log in first.")
		return 0, false
	}
	return id, true
}

func (h *ChatbotHandler) requireEnabled(c *gin.Context) bool {
	if !h.roles.Enabled() {
		response.ChatbotDisabled(c, "The chatbot is currently disabled.")
		return false
	}
	return true
}

// resolveRole 确定本次对话的角色
// 没有指定时使用默认角色，指定了合法角色但无权使用时返回 403
// 非法字符串原样交给服务层校验
func (h *ChatbotHandler) resolveRole(c *gin.Context, userID int64, raw string) (string, bool) {
	if raw == "" {
		return string(h.roles.DefaultRole(c.Request.Context(), userID)), true
	}
	role, valid := model.ParseRole(raw)
	if !valid {
		return raw, true
	}
	if !h.roles.CanUseRole(c.Request.Context(), userID, role) {
		response.InvalidRole(c, "You do not have permission to use this role.")
		return "", false
	}
	return string(role), true
}

func (h *ChatbotHandler) writeChatError(c *gin.Context, err error) {
	switch service.ErrorCode(err) {
	case service.CodeInvalidMessage:
		response.InvalidMessage(c, err.Error())
	case service.CodeRateLimited:
		response.RateLimited(c, h.chatbot.Prompts().RateLimitPrompt())
	case service.CodeAIError:
		response.AIError(c, h.chatbot.Prompts().ErrorPrompt())
	default:
		response.InternalError(c, h.chatbot.Prompts().ErrorPrompt())
	}
}

// collectParams 合并请求体顶层字段和 query_params 对象，后者优先
func collectParams(body map[string]any) map[string]any {
	raw := make(map[string]any)
	for k, v := range body {
		if !reservedChatFields[k] {
			raw[k] = v
		}
	}
	if nested, ok := body["query_params"].(map[string]any); ok {
		for k, v := range nested {
			raw[k] = v
		}
	}
	return raw
}

// intentPayload 把意图展开为一层对象，前端确认时原样回传
func intentPayload(intent *model.Intent) map[string]string {
	if intent == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(intent.Params)+1)
	for k, v := range intent.Params {
		out[k] = v
	}
	out["type"] = string(intent.Type)
	return out
}

func stringField(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

// vendorIDField 解析店铺 ID，非正数视为未指定
func vendorIDField(v any) *int64 {
	var id int64
	switch t := v.(type) {
	case float64:
		id = int64(t)
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil
		}
		id = n
	default:
		return nil
	}
	if id <= 0 {
		return nil
	}
	return util.Int64Ptr(id)
}
