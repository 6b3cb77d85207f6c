package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"marketplace-chatbot-server/internal/cache"
	"marketplace-chatbot-server/internal/model"
)

// memoryRepo 内存版对话存储
type memoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	rows    []model.Conversation
	failAll bool
}

var errStorage = errors.New("storage unavailable")

func (r *memoryRepo) Create(ctx context.Context, conv *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errStorage
	}
	r.nextID++
	conv.ID = r.nextID
	r.rows = append(r.rows, *conv)
	return nil
}

func (r *memoryRepo) userRows(userID int64) []model.Conversation {
	var out []model.Conversation
	for _, c := range r.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *memoryRepo) GetRecentByUserID(ctx context.Context, userID int64, limit int) ([]model.Conversation, error) {
	return r.GetByUserIDWithPagination(ctx, userID, limit, 0)
}

func (r *memoryRepo) GetByUserIDWithPagination(ctx context.Context, userID int64, limit, offset int) ([]model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStorage
	}
	rows := r.userRows(userID)
	// 最新在前分页，再翻转为正序
	end := len(rows) - offset
	if end <= 0 {
		return []model.Conversation{}, nil
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]model.Conversation, end-start)
	copy(out, rows[start:end])
	return out, nil
}

func (r *memoryRepo) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return 0, errStorage
	}
	return int64(len(r.userRows(userID))), nil
}

func (r *memoryRepo) CountByUserIDSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return 0, errStorage
	}
	var n int64
	for _, c := range r.userRows(userID) {
		if c.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return 0, errStorage
	}
	kept := r.rows[:0]
	var n int64
	for _, c := range r.rows {
		if c.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	r.rows = kept
	return n, nil
}

func (r *memoryRepo) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return 0, errStorage
	}
	kept := r.rows[:0]
	var n int64
	for _, c := range r.rows {
		if c.UserID == userID {
			n++
			continue
		}
		kept = append(kept, c)
	}
	r.rows = kept
	return n, nil
}

func (r *memoryRepo) GetLastIDByUserID(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return 0, errStorage
	}
	var id int64
	for _, c := range r.rows {
		if c.UserID == userID && c.ID > id {
			id = c.ID
		}
	}
	return id, nil
}

func (r *memoryRepo) GetSummary(ctx context.Context, userID int64, since time.Time) (*model.ConversationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStorage
	}
	s := &model.ConversationSummary{}
	days := map[string]bool{}
	for _, c := range r.userRows(userID) {
		if c.CreatedAt.Before(since) {
			continue
		}
		at := c.CreatedAt
		s.TotalMessages++
		days[at.Format("2006-01-02")] = true
		if s.FirstMessage == nil {
			s.FirstMessage = &at
		}
		s.LastMessage = &at
	}
	s.ActiveDays = int64(len(days))
	return s, nil
}

func (r *memoryRepo) CountByRole(ctx context.Context, userID int64) ([]model.RoleUsage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errStorage
	}
	byRole := map[string]*model.RoleUsage{}
	var order []string
	for _, c := range r.userRows(userID) {
		u, ok := byRole[c.Role]
		if !ok {
			u = &model.RoleUsage{Role: c.Role}
			byRole[c.Role] = u
			order = append(order, c.Role)
		}
		at := c.CreatedAt
		u.UsageCount++
		u.LastUsed = &at
	}
	out := make([]model.RoleUsage, 0, len(order))
	for _, role := range order {
		out = append(out, *byRole[role])
	}
	return out, nil
}

// fakeMarketplace 商城数据的假实现
type fakeMarketplace struct {
	accounts map[int64]*model.Account
	stores   map[int64]*model.StoreInfo
	stats    *model.DashboardStats
	analytic []model.AnalyticsRow
	sales    []model.SalesReport
	products []model.ProductSummary
	orders   []model.OrderSummary
	reviews  []model.Review
	recent   []model.OrderSummary
	order    *model.Order
	search   []model.Product

	failStore bool
	searched  []model.ProductSearch
	filters   []model.OrderFilter
}

func (f *fakeMarketplace) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	return f.accounts[userID], nil
}

func (f *fakeMarketplace) GetStoreInfo(ctx context.Context, vendorID int64) (*model.StoreInfo, error) {
	if f.failStore {
		return nil, errors.New("store api down")
	}
	return f.stores[vendorID], nil
}

func (f *fakeMarketplace) GetDashboardStats(ctx context.Context, vendorID int64) (*model.DashboardStats, error) {
	return f.stats, nil
}

func (f *fakeMarketplace) GetAnalytics(ctx context.Context, vendorID int64, q model.AnalyticsQuery) ([]model.AnalyticsRow, error) {
	return f.analytic, nil
}

func (f *fakeMarketplace) GetSalesReports(ctx context.Context, vendorID int64, q model.SalesQuery) ([]model.SalesReport, error) {
	return f.sales, nil
}

func (f *fakeMarketplace) GetProductsSummary(ctx context.Context, vendorID int64) ([]model.ProductSummary, error) {
	return f.products, nil
}

func (f *fakeMarketplace) GetOrdersSummary(ctx context.Context, vendorID int64, q model.OrdersQuery) ([]model.OrderSummary, error) {
	return f.orders, nil
}

func (f *fakeMarketplace) GetStoreProducts(ctx context.Context, vendorID int64, q model.ProductsQuery) ([]model.ProductSummary, error) {
	return f.products, nil
}

func (f *fakeMarketplace) GetStoreReviews(ctx context.Context, vendorID int64, q model.ReviewsQuery) ([]model.Review, error) {
	return f.reviews, nil
}

func (f *fakeMarketplace) GetRecentOrders(ctx context.Context, filter model.OrderFilter) ([]model.OrderSummary, error) {
	f.filters = append(f.filters, filter)
	return f.recent, nil
}

func (f *fakeMarketplace) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	if f.order != nil && f.order.ID == orderID {
		return f.order, nil
	}
	return nil, nil
}

func (f *fakeMarketplace) SearchProducts(ctx context.Context, q model.ProductSearch) ([]model.Product, error) {
	f.searched = append(f.searched, q)
	return f.search, nil
}

// fakeCompleter 记录调用并返回固定回复
type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
	meta    []map[string]any
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, metadata map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.meta = append(f.meta, metadata)
	return f.reply, f.err
}

// fakePublisher 记录发布的事件
type fakePublisher struct {
	events []*cache.MessageProcessedEvent
	err    error
}

func (f *fakePublisher) PublishMessageProcessed(ctx context.Context, event *cache.MessageProcessedEvent) error {
	f.events = append(f.events, event)
	return f.err
}

// fakeRoleCache 内存版角色缓存
type fakeRoleCache struct {
	roles map[int64]model.Role
}

func (f *fakeRoleCache) GetPreferredRole(ctx context.Context, userID int64) (model.Role, error) {
	return f.roles[userID], nil
}

func (f *fakeRoleCache) SetPreferredRole(ctx context.Context, userID int64, role model.Role) error {
	if f.roles == nil {
		f.roles = map[int64]model.Role{}
	}
	f.roles[userID] = role
	return nil
}

// fakePrefs 内存版偏好存储
type fakePrefs struct {
	prefs map[int64]*model.Preference
	err   error
}

func (f *fakePrefs) GetByUserID(ctx context.Context, userID int64) (*model.Preference, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prefs[userID], nil
}

func (f *fakePrefs) SaveRole(ctx context.Context, userID int64, role string, switchedAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	if f.prefs == nil {
		f.prefs = map[int64]*model.Preference{}
	}
	f.prefs[userID] = &model.Preference{UserID: userID, PreferredRole: role, LastRoleSwitch: &switchedAt}
	return nil
}
