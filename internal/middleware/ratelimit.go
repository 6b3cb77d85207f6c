package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"marketplace-chatbot-server/pkg/response"
)

// limiterIdleTTL 超过这个时间没有请求的令牌桶会被回收
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 令牌桶限流，按用户或 IP 分桶
// 用于挡住突发请求，每小时的消息上限由聊天服务控制
type RateLimiter struct {
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// NewRateLimiter 创建限流器
// 参数:
//   - rps: 每秒补充的令牌数
//   - burst: 桶容量
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  limiterIdleTTL,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Middleware 返回 gin 中间件
// 放在认证中间件之后时按用户限流，否则按客户端 IP
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(limiterKey(c)).Allow() {
			response.TooManyRequests(c, "Too many requests, please slow down.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// size 当前保留的令牌桶数量
func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if v, ok := l.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}

	// 新建令牌桶时顺便回收空闲的，每个 TTL 周期最多扫一次
	if now.Sub(l.lastSweep) >= l.idleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.idleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v := &visitor{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.visitors[key] = v
	return v.limiter
}

func limiterKey(c *gin.Context) string {
	if id := GetUserID(c); id > 0 {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + c.ClientIP()
}
