package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"marketplace-chatbot-server/internal/config"
)

const (
	// DashScope API Endpoint
	QwenEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
	// Model Name
	QwenModel = "qwen-turbo"
)

// AIService 调用通义千问的补全引擎
type AIService struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

// NewAIService 创建 AIService 实例
func NewAIService(cfg config.AIConfig) *AIService {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = QwenEndpoint
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = QwenModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AIService{
		apiKey:   cfg.QwenAPIKey,
		endpoint: endpoint,
		model:    modelName,
		client:   &http.Client{Timeout: timeout},
	}
}

// DashScopeRequest 阿里云 API 请求结构
type DashScopeRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []DashScopeMessage `json:"messages"`
	} `json:"input"`
	Parameters struct {
		ResultFormat string `json:"result_format"` // "message"
	} `json:"parameters"`
}

type DashScopeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DashScopeResponse 阿里云 API 响应结构
type DashScopeResponse struct {
	Output struct {
		Choices []struct {
			Message DashScopeMessage `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Complete 发送提示词并返回回复文本
// 提示词已经包含角色说明和上下文，整体作为一条 user 消息发送
// metadata 不会发送给模型：role 和 purpose 写入请求日志，purpose 同时放在 X-Request-Purpose 请求头
func (s *AIService) Complete(ctx context.Context, prompt string, metadata map[string]any) (string, error) {
	if s.apiKey == "" {
		return "", errors.New("AI service not configured (missing API Key)")
	}

	dashReq := DashScopeRequest{Model: s.model}
	dashReq.Input.Messages = []DashScopeMessage{
		{Role: "user", Content: prompt},
	}
	dashReq.Parameters.ResultFormat = "message"

	jsonData, err := json.Marshal(dashReq)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	purpose, _ := metadata["purpose"].(string)
	if purpose != "" {
		httpReq.Header.Set("X-Request-Purpose", purpose)
	}
	role, _ := metadata["role"].(string)
	log.Printf("[INFO] [ai] completion request: model=%s role=%s purpose=%s prompt_chars=%d", s.model, role, purpose, len(prompt))

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call AI service: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var dashResp DashScopeResponse
	if err := json.Unmarshal(bodyBytes, &dashResp); err != nil {
		return "", fmt.Errorf("failed to parse AI response: %w", err)
	}
	if dashResp.Code != "" {
		return "", fmt.Errorf("AI service error: %s - %s", dashResp.Code, dashResp.Message)
	}
	if len(dashResp.Output.Choices) == 0 {
		return "", nil
	}

	return strings.TrimSpace(dashResp.Output.Choices[0].Message.Content), nil
}
