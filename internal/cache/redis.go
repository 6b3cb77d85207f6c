// Package cache 提供 Redis 缓存操作的封装
// 处理 JWT 黑名单、角色偏好缓存以及对话事件的广播
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"marketplace-chatbot-server/internal/config"
	"marketplace-chatbot-server/internal/model"
)

// MessageProcessedChannel 对话完成事件的频道名
const MessageProcessedChannel = "chatbot:message_processed"

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client  *redis.Client // Redis 客户端实例
	roleTTL time.Duration // 角色偏好缓存时间
}

// NewRedisCache 创建 RedisCache 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息）
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCacheFromClient(client, cfg.Redis.RoleTTL), nil
}

// NewRedisCacheFromClient 使用已有的客户端创建缓存实例
func NewRedisCacheFromClient(client *redis.Client, roleTTL time.Duration) *RedisCache {
	if roleTTL <= 0 {
		roleTTL = 10 * time.Minute
	}
	return &RedisCache{client: client, roleTTL: roleTTL}
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping 检查连接是否可用
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ==================== JWT 黑名单 ====================

// BlacklistToken 将 Token 加入黑名单
// 参数:
//   - ctx: 上下文
//   - tokenHash: Token 的哈希值（不存储原始 Token）
//   - expireAt: Token 的原始过期时间
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) BlacklistToken(ctx context.Context, tokenHash string, expireAt time.Time) error {
	ttl := time.Until(expireAt)
	if ttl <= 0 {
		// Token 已过期，无需加入黑名单
		return nil
	}
	return c.client.Set(ctx, fmt.Sprintf("jwt:blacklist:%s", tokenHash), "1", ttl).Err()
}

// IsTokenBlacklisted 检查 Token 是否在黑名单中
func (c *RedisCache) IsTokenBlacklisted(ctx context.Context, tokenHash string) bool {
	return c.client.Exists(ctx, fmt.Sprintf("jwt:blacklist:%s", tokenHash)).Val() > 0
}

// ==================== 角色偏好 ====================

// SetPreferredRole 缓存用户当前的角色
func (c *RedisCache) SetPreferredRole(ctx context.Context, userID int64, role model.Role) error {
	return c.client.Set(ctx, preferredRoleKey(userID), string(role), c.roleTTL).Err()
}

// GetPreferredRole 读取缓存的角色
// 返回:
//   - model.Role: 缓存的角色，未命中返回空字符串
//   - error: Redis 操作错误（未命中不算错误）
func (c *RedisCache) GetPreferredRole(ctx context.Context, userID int64) (model.Role, error) {
	val, err := c.client.Get(ctx, preferredRoleKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	role, ok := model.ParseRole(val)
	if !ok {
		return "", nil
	}
	return role, nil
}

// DeletePreferredRole 删除缓存的角色
func (c *RedisCache) DeletePreferredRole(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, preferredRoleKey(userID)).Err()
}

func preferredRoleKey(userID int64) string {
	return fmt.Sprintf("chatbot:user:%d:role", userID)
}

// ==================== Pub/Sub ====================
// 对话完成后广播事件，供其他服务实例或外部订阅者使用

// MessageProcessedEvent 一轮对话完成的事件
type MessageProcessedEvent struct {
	UserID      int64          `json:"user_id"`
	VendorID    *int64         `json:"vendor_id,omitempty"`
	Role        string         `json:"role"`
	Message     string         `json:"message"`
	Response    string         `json:"response"`
	QueryParams map[string]any `json:"query_params,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// PublishMessageProcessed 发布对话完成事件
func (c *RedisCache) PublishMessageProcessed(ctx context.Context, event *MessageProcessedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, MessageProcessedChannel, data).Err()
}

// SubscribeMessageProcessed 订阅对话完成事件
// 调用方负责关闭返回的 PubSub
func (c *RedisCache) SubscribeMessageProcessed(ctx context.Context) *redis.PubSub {
	return c.client.Subscribe(ctx, MessageProcessedChannel)
}
