package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gorm.io/datatypes"
	"marketplace-chatbot-server/internal/model"
)

// DefaultRecentLimit 默认携带的历史轮数
const DefaultRecentLimit = 5

// ConversationRepo 对话记录存储
// 由 repository.ConversationRepository 实现
type ConversationRepo interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetRecentByUserID(ctx context.Context, userID int64, limit int) ([]model.Conversation, error)
	GetByUserIDWithPagination(ctx context.Context, userID int64, limit, offset int) ([]model.Conversation, error)
	CountByUserID(ctx context.Context, userID int64) (int64, error)
	CountByUserIDSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteByUserID(ctx context.Context, userID int64) (int64, error)
	GetLastIDByUserID(ctx context.Context, userID int64) (int64, error)
	GetSummary(ctx context.Context, userID int64, since time.Time) (*model.ConversationSummary, error)
	CountByRole(ctx context.Context, userID int64) ([]model.RoleUsage, error)
}

// HistoryService 对话历史服务
// 存储层的错误只记录日志，不向上抛出，调用方拿到的是空结果或 false
type HistoryService struct {
	repo ConversationRepo
	now  func() time.Time
}

// NewHistoryService 创建 HistoryService 实例
func NewHistoryService(repo ConversationRepo) *HistoryService {
	return &HistoryService{repo: repo, now: time.Now}
}

// WithClock 替换时钟，用于测试
func (s *HistoryService) WithClock(now func() time.Time) *HistoryService {
	s.now = now
	return s
}

// Save 保存一轮对话
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - role: 对话角色
//   - vendorID: 关联店铺，可以为 nil
//   - message: 用户消息
//   - response: AI 回复
//   - contextData: 上下文快照，会被序列化为 JSON
//
// 返回:
//   - int64: 新记录 ID
//   - bool: 是否保存成功
func (s *HistoryService) Save(ctx context.Context, userID int64, role model.Role, vendorID *int64, message, response string, contextData any) (int64, bool) {
	conv := &model.Conversation{
		UserID:    userID,
		VendorID:  vendorID,
		Role:      string(role),
		Message:   message,
		Response:  response,
		CreatedAt: s.now().UTC(),
	}
	if contextData != nil {
		data, err := json.Marshal(contextData)
		if err != nil {
			log.Printf("[WARN] [chatbot] failed to encode context snapshot: user_id=%d err=%v", userID, err)
		} else {
			conv.ContextData = datatypes.JSON(data)
		}
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		log.Printf("[ERROR] [chatbot] failed to save conversation: user_id=%d err=%v", userID, err)
		return 0, false
	}
	return conv.ID, true
}

// Recent 获取最近的 limit 轮对话，按时间正序
// limit <= 0 时使用 DefaultRecentLimit
func (s *HistoryService) Recent(ctx context.Context, userID int64, limit int) []model.Conversation {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	convs, err := s.repo.GetRecentByUserID(ctx, userID, limit)
	if err != nil {
		log.Printf("[ERROR] [chatbot] failed to load recent conversations: user_id=%d err=%v", userID, err)
		return []model.Conversation{}
	}
	return convs
}

// Page 分页获取对话，页内按时间正序
func (s *HistoryService) Page(ctx context.Context, userID int64, limit, offset int) []model.Conversation {
	if limit <= 0 {
		return []model.Conversation{}
	}
	if offset < 0 {
		offset = 0
	}
	convs, err := s.repo.GetByUserIDWithPagination(ctx, userID, limit, offset)
	if err != nil {
		log.Printf("[ERROR] [chatbot] failed to load conversation page: user_id=%d err=%v", userID, err)
		return []model.Conversation{}
	}
	return convs
}

// Total 获取用户的对话总数
func (s *HistoryService) Total(ctx context.Context, userID int64) int64 {
	n, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		log.Printf("[ERROR] [chatbot] failed to count conversations: user_id=%d err=%v", userID, err)
		return 0
	}
	return n
}

// CountWithin 统计最近 window 时间内的对话数
func (s *HistoryService) CountWithin(ctx context.Context, userID int64, window time.Duration) int64 {
	n, err := s.repo.CountByUserIDSince(ctx, userID, s.now().UTC().Add(-window))
	if err != nil {
		log.Printf("[ERROR] [chatbot] failed to count recent conversations: user_id=%d err=%v", userID, err)
		return 0
	}
	return n
}

// PruneOlderThan 删除 days 天之前的所有对话
// days <= 0 表示不清理
// 返回:
//   - int64: 删除的条数
func (s *HistoryService) PruneOlderThan(ctx context.Context, days int) int64 {
	if days <= 0 {
		return 0
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[ERROR] [chatbot] failed to prune conversations: days=%d err=%v", days, err)
		return 0
	}
	return n
}

// Clear 删除用户全部对话
// 只有确实删除了记录才返回 true
func (s *HistoryService) Clear(ctx context.Context, userID int64) bool {
	n, err := s.repo.DeleteByUserID(ctx, userID)
	if err != nil {
		log.Printf("[ERROR] [chatbot] failed to clear conversations: user_id=%d err=%v", userID, err)
		return false
	}
	return n > 0
}

// LastMessageID 获取用户最新一条对话的 ID，没有返回 0
func (s *HistoryService) LastMessageID(ctx context.Context, userID int64) int64 {
	id, err := s.repo.GetLastIDByUserID(ctx, userID)
	if err != nil {
		log.Printf("[ERROR] [chatbot] failed to load last conversation id: user_id=%d err=%v", userID, err)
		return 0
	}
	return id
}

// Summary 统计最近 days 天的对话概况
func (s *HistoryService) Summary(ctx context.Context, userID int64, days int) *model.ConversationSummary {
	if days <= 0 {
		days = 7
	}
	summary, err := s.repo.GetSummary(ctx, userID, s.now().UTC().AddDate(0, 0, -days))
	if err != nil {
		log.Printf("[ERROR] [chatbot] failed to summarize conversations: user_id=%d err=%v", userID, err)
		return &model.ConversationSummary{}
	}
	return summary
}

// RoleUsage 按角色统计用户的对话
func (s *HistoryService) RoleUsage(ctx context.Context, userID int64) []model.RoleUsage {
	usage, err := s.repo.CountByRole(ctx, userID)
	if err != nil {
		log.Printf("[ERROR] [chatbot] failed to load role usage: user_id=%d err=%v", userID, err)
		return []model.RoleUsage{}
	}
	return usage
}
