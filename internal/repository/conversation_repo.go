// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"marketplace-chatbot-server/internal/model"
)

// ConversationRepository 对话记录数据访问层
// 负责 chatbot_conversations 表的所有数据库操作
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建 ConversationRepository 实例
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create 保存一轮对话
// 参数:
//   - ctx: 上下文
//   - conv: 对话对象，ID 会被自动填充
//
// 返回:
//   - error: 数据库错误
func (r *ConversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

// GetRecentByUserID 获取用户最近的 N 轮对话
// 先按时间倒序取最新的 N 条，再反转为正序，方便直接拼进提示词
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - limit: 要获取的数量
//
// 返回:
//   - []model.Conversation: 对话列表（按时间正序）
//   - error: 数据库错误
func (r *ConversationRepository) GetRecentByUserID(ctx context.Context, userID int64, limit int) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	reverse(convs)
	return convs, nil
}

// GetByUserIDWithPagination 分页获取用户的对话
// offset 从最新的一条开始计算，页内按时间正序返回
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - limit: 每页数量
//   - offset: 跳过的条数
//
// 返回:
//   - []model.Conversation: 对话列表
//   - error: 数据库错误
func (r *ConversationRepository) GetByUserIDWithPagination(ctx context.Context, userID int64, limit, offset int) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	reverse(convs)
	return convs, nil
}

// CountByUserID 统计用户的对话总数
func (r *ConversationRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountByUserIDSince 统计用户在某个时间点之后的对话数
// 用于滑动窗口限流，边界时间点本身不计入
func (r *ConversationRepository) CountByUserIDSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Count(&count).Error
	return count, err
}

// DeleteOlderThan 删除某个时间点之前的所有对话
// 返回:
//   - int64: 删除的行数
//   - error: 数据库错误
func (r *ConversationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.Conversation{})
	return result.RowsAffected, result.Error
}

// DeleteByUserID 删除用户的全部对话
func (r *ConversationRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Conversation{})
	return result.RowsAffected, result.Error
}

// GetLastIDByUserID 获取用户最新一条对话的 ID
// 没有记录时返回 0
func (r *ConversationRepository) GetLastIDByUserID(ctx context.Context, userID int64) (int64, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Select("id").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return conv.ID, nil
}

// GetSummary 统计用户在某个时间点之后的对话概况
// 活跃天数在内存中计算，避免依赖各数据库不同的日期函数
func (r *ConversationRepository) GetSummary(ctx context.Context, userID int64, since time.Time) (*model.ConversationSummary, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	if err != nil {
		return nil, err
	}

	summary := &model.ConversationSummary{TotalMessages: int64(len(times))}
	if len(times) == 0 {
		return summary, nil
	}

	days := make(map[string]struct{})
	for _, ts := range times {
		days[ts.Format("2006-01-02")] = struct{}{}
	}
	first, last := times[0], times[len(times)-1]
	summary.ActiveDays = int64(len(days))
	summary.FirstMessage = &first
	summary.LastMessage = &last
	return summary, nil
}

// CountByRole 按角色统计用户的对话次数和最近使用时间
// 与 GetSummary 一样在内存中聚合，MAX(created_at) 在 SQLite 下返回的是字符串
func (r *ConversationRepository) CountByRole(ctx context.Context, userID int64) ([]model.RoleUsage, error) {
	var convs []model.Conversation
	err := r.db.WithContext(ctx).
		Select("role", "created_at").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	usage := make([]model.RoleUsage, 0, 2)
	for _, c := range convs {
		createdAt := c.CreatedAt
		i, ok := index[c.Role]
		if !ok {
			index[c.Role] = len(usage)
			usage = append(usage, model.RoleUsage{Role: c.Role, UsageCount: 1, LastUsed: &createdAt})
			continue
		}
		usage[i].UsageCount++
		usage[i].LastUsed = &createdAt
	}
	return usage, nil
}

// reverse 原地反转切片
func reverse(convs []model.Conversation) {
	for i, j := 0, len(convs)-1; i < j; i, j = i+1, j-1 {
		convs[i], convs[j] = convs[j], convs[i]
	}
}
