package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"marketplace-chatbot-server/internal/config"
	"marketplace-chatbot-server/internal/model"
)

// PreferenceRepo 角色偏好存储
// 由 repository.PreferenceRepository 实现
type PreferenceRepo interface {
	GetByUserID(ctx context.Context, userID int64) (*model.Preference, error)
	SaveRole(ctx context.Context, userID int64, role string, switchedAt time.Time) error
}

var roleCapabilities = map[model.Role][]string{
	model.RoleVendor: {
		"store_analytics",
		"order_management",
		"product_optimization",
		"customer_insights",
		"sales_reports",
		"inventory_management",
		"marketing_suggestions",
	},
	model.RoleCustomer: {
		"product_recommendations",
		"order_tracking",
		"shopping_assistance",
		"store_information",
		"return_policies",
		"shipping_info",
		"general_support",
	},
}

// RoleStatistic 单个角色的使用情况
type RoleStatistic struct {
	Role       model.Role `json:"role"`
	UsageCount int64      `json:"usage_count"`
	LastUsed   *time.Time `json:"last_used"`
	Preferred  bool       `json:"preferred"`
}

// RoleService 角色权限与偏好
type RoleService struct {
	cfg      config.ChatbotConfig
	accounts AccountProvider
	stores   StoreProvider
	prefs    PreferenceRepo
	cache    RoleCache
	history  *HistoryService
	now      func() time.Time
}

// NewRoleService 创建 RoleService 实例
// cache 可以为 nil，此时每次都读数据库
func NewRoleService(cfg config.ChatbotConfig, accounts AccountProvider, stores StoreProvider, prefs PreferenceRepo, cache RoleCache, history *HistoryService) *RoleService {
	return &RoleService{
		cfg:      cfg,
		accounts: accounts,
		stores:   stores,
		prefs:    prefs,
		cache:    cache,
		history:  history,
		now:      time.Now,
	}
}

// Enabled 聊天机器人总开关
func (s *RoleService) Enabled() bool {
	return s.cfg.Enabled
}

// CanUseRole 判断用户能否以指定角色对话
// 卖家角色要求用户是卖家且店铺名称不为空，买家角色对所有登录用户开放
func (s *RoleService) CanUseRole(ctx context.Context, userID int64, role model.Role) bool {
	if userID <= 0 || !s.cfg.Enabled {
		return false
	}
	switch role {
	case model.RoleVendor:
		return s.cfg.VendorAccess && s.hasStore(ctx, userID)
	case model.RoleCustomer:
		return s.cfg.CustomerAccess
	default:
		return false
	}
}

// DefaultRole 用户进入聊天时的默认角色
// 优先使用仍然有权限的偏好角色，否则卖家为 vendor，其他用户为 customer
func (s *RoleService) DefaultRole(ctx context.Context, userID int64) model.Role {
	if preferred := s.preferredRole(ctx, userID); preferred != "" && s.CanUseRole(ctx, userID, preferred) {
		return preferred
	}
	if s.isSeller(ctx, userID) {
		return model.RoleVendor
	}
	return model.RoleCustomer
}

// SwitchRole 切换并记住用户的角色
// 参数:
//   - ctx: 上下文
//   - userID: 用户ID
//   - role: 目标角色，原始字符串
//
// 返回:
//   - model.Role: 切换后的角色
//   - error: 无权限时返回 ErrRoleNotPermitted
func (s *RoleService) SwitchRole(ctx context.Context, userID int64, role string) (model.Role, error) {
	r, ok := model.ParseRole(role)
	if !ok || !s.CanUseRole(ctx, userID, r) {
		return "", ErrRoleNotPermitted
	}

	if err := s.prefs.SaveRole(ctx, userID, string(r), s.now().UTC()); err != nil {
		log.Printf("[ERROR] [chatbot] failed to save role preference: user_id=%d err=%v", userID, err)
		return "", fmt.Errorf("save role preference: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetPreferredRole(ctx, userID, r); err != nil {
			log.Printf("[WARN] [chatbot] failed to cache role preference: user_id=%d err=%v", userID, err)
		}
	}

	log.Printf("[INFO] [chatbot] role switched: user_id=%d role=%s", userID, r)
	return r, nil
}

// AvailableRoles 用户可用的角色列表，买家在前
func (s *RoleService) AvailableRoles(ctx context.Context, userID int64) []model.Role {
	roles := make([]model.Role, 0, 2)
	for _, r := range []model.Role{model.RoleCustomer, model.RoleVendor} {
		if s.CanUseRole(ctx, userID, r) {
			roles = append(roles, r)
		}
	}
	return roles
}

// Capabilities 角色具备的能力
func (s *RoleService) Capabilities(role model.Role) []string {
	caps := roleCapabilities[role]
	out := make([]string, len(caps))
	copy(out, caps)
	return out
}

// HasCapability 用户在指定角色下是否具备某项能力
func (s *RoleService) HasCapability(ctx context.Context, userID int64, role model.Role, capability string) bool {
	if !s.CanUseRole(ctx, userID, role) {
		return false
	}
	for _, c := range roleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// DisplayName 角色显示名称
func (s *RoleService) DisplayName(role model.Role) string {
	switch role {
	case model.RoleVendor:
		return "Vendor"
	case model.RoleCustomer:
		return "Customer"
	default:
		return "User"
	}
}

// Description 角色说明
func (s *RoleService) Description(role model.Role) string {
	switch role {
	case model.RoleVendor:
		return "Get help with store management, orders, analytics, and business insights."
	case model.RoleCustomer:
		return "Get help with shopping, orders, product recommendations, and customer support."
	default:
		return "Get general assistance and support."
	}
}

// Statistics 按角色统计用户的使用次数和最近使用时间
func (s *RoleService) Statistics(ctx context.Context, userID int64) []RoleStatistic {
	stats := []RoleStatistic{{Role: model.RoleVendor}, {Role: model.RoleCustomer}}

	preferred := s.preferredRole(ctx, userID)
	var usage []model.RoleUsage
	if s.history != nil {
		usage = s.history.RoleUsage(ctx, userID)
	}

	for i := range stats {
		stats[i].Preferred = stats[i].Role == preferred
		for _, u := range usage {
			if u.Role == string(stats[i].Role) {
				stats[i].UsageCount = u.UsageCount
				stats[i].LastUsed = u.LastUsed
			}
		}
	}
	return stats
}

// preferredRole 读取偏好角色，先查缓存再查数据库，没有记录返回空
func (s *RoleService) preferredRole(ctx context.Context, userID int64) model.Role {
	if s.cache != nil {
		if r, err := s.cache.GetPreferredRole(ctx, userID); err == nil && r != "" {
			return r
		}
	}

	pref, err := s.prefs.GetByUserID(ctx, userID)
	if err != nil {
		log.Printf("[WARN] [chatbot] failed to load role preference: user_id=%d err=%v", userID, err)
		return ""
	}
	if pref == nil {
		return ""
	}
	r, ok := model.ParseRole(pref.PreferredRole)
	if !ok {
		return ""
	}
	if s.cache != nil {
		if err := s.cache.SetPreferredRole(ctx, userID, r); err != nil {
			log.Printf("[WARN] [chatbot] failed to cache role preference: user_id=%d err=%v", userID, err)
		}
	}
	return r
}

func (s *RoleService) account(ctx context.Context, userID int64) *model.Account {
	acc, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		log.Printf("[WARN] [chatbot] failed to load account: user_id=%d err=%v", userID, err)
		return nil
	}
	return acc
}

func (s *RoleService) isSeller(ctx context.Context, userID int64) bool {
	acc := s.account(ctx, userID)
	return acc != nil && acc.IsSeller
}

// hasStore 卖家并且已经设置了店铺名称
func (s *RoleService) hasStore(ctx context.Context, userID int64) bool {
	if !s.isSeller(ctx, userID) {
		return false
	}
	info, err := s.stores.GetStoreInfo(ctx, userID)
	if err != nil {
		log.Printf("[WARN] [chatbot] failed to load store info: user_id=%d err=%v", userID, err)
		return false
	}
	return info != nil && strings.TrimSpace(info.Name) != ""
}
