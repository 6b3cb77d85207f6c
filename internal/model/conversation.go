package model

import (
	"time"

	"gorm.io/datatypes"
)

// Conversation 对话记录模型
// 对应数据库表 chatbot_conversations
// 每一行是一轮完整的问答（用户消息 + AI 回复）
type Conversation struct {
	// ID 记录唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// UserID 发起对话的用户
	UserID int64 `gorm:"index;not null" json:"user_id"`

	// VendorID 对话关联的店铺，可以为 NULL
	// 买家在某个店铺页面提问时才会有值
	VendorID *int64 `gorm:"index" json:"vendor_id,omitempty"`

	// Role 对话时使用的角色: vendor / customer
	Role string `gorm:"size:20;not null" json:"role"`

	// Message 用户消息
	Message string `gorm:"type:text;not null" json:"message"`

	// Response AI 回复
	Response string `gorm:"type:text;not null" json:"response"`

	// ContextData 生成回复时使用的上下文快照（JSON）
	ContextData datatypes.JSON `json:"context_data,omitempty"`

	// CreatedAt 创建时间
	// 由服务层显式写入，便于按时间窗口统计
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "chatbot_conversations"
}

// ConversationSummary 用户近期对话概览
type ConversationSummary struct {
	TotalMessages int64      `json:"total_messages"`
	ActiveDays    int64      `json:"active_days"`
	FirstMessage  *time.Time `json:"first_message,omitempty"`
	LastMessage   *time.Time `json:"last_message,omitempty"`
}

// RoleUsage 某个角色的使用统计
type RoleUsage struct {
	Role       string     `json:"role"`
	UsageCount int64      `json:"usage_count"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
}
