package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"marketplace-chatbot-server/internal/model"
)

// PreferenceRepository 用户聊天偏好数据访问层
type PreferenceRepository struct {
	db *gorm.DB // GORM 数据库连接实例
}

// NewPreferenceRepository 创建 PreferenceRepository 实例
func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// GetByUserID 根据用户 ID 获取偏好
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//
// 返回:
//   - *model.Preference: 偏好对象，如果未找到返回 nil
//   - error: 数据库错误（不包括记录未找到）
func (r *PreferenceRepository) GetByUserID(ctx context.Context, userID int64) (*model.Preference, error) {
	var pref model.Preference
	err := r.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pref, nil
}

// SaveRole 记录用户选择的角色
// 记录不存在时插入，存在时只更新角色和切换时间
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - role: 新角色
//   - switchedAt: 切换时间
//
// 返回:
//   - error: 数据库错误
func (r *PreferenceRepository) SaveRole(ctx context.Context, userID int64, role string, switchedAt time.Time) error {
	pref := model.Preference{
		UserID:               userID,
		PreferredRole:        role,
		ChatEnabled:          true,
		NotificationsEnabled: true,
		LastRoleSwitch:       &switchedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preferred_role", "last_role_switch", "updated_at"}),
	}).Create(&pref).Error
}
