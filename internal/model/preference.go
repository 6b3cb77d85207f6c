package model

import (
	"time"
)

// Preference 用户的聊天偏好
// 对应数据库表 chatbot_preferences，一个用户一行
type Preference struct {
	// UserID 用户ID，同时作为主键
	UserID int64 `gorm:"primaryKey;autoIncrement:false" json:"user_id"`

	// PreferredRole 用户上次选择的角色
	PreferredRole string `gorm:"size:20;not null;default:customer" json:"preferred_role"`

	// ChatEnabled 用户是否启用聊天
	ChatEnabled bool `gorm:"not null;default:true" json:"chat_enabled"`

	// NotificationsEnabled 用户是否接收通知
	NotificationsEnabled bool `gorm:"not null;default:true" json:"notifications_enabled"`

	// LastRoleSwitch 最近一次切换角色的时间，从未切换过为 NULL
	LastRoleSwitch *time.Time `json:"last_role_switch,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Preference) TableName() string {
	return "chatbot_preferences"
}
