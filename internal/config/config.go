// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 是应用程序的根配置结构
// 加载完成后不再修改，通过构造函数传给各个组件
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`      // 服务器配置
	Database    DatabaseConfig    `mapstructure:"database"`    // 数据库配置
	Redis       RedisConfig       `mapstructure:"redis"`       // Redis 配置
	JWT         JWTConfig         `mapstructure:"jwt"`         // JWT 配置
	Log         LogConfig         `mapstructure:"log"`         // 日志配置
	AI          AIConfig          `mapstructure:"ai"`          // AI 服务配置
	Marketplace MarketplaceConfig `mapstructure:"marketplace"` // 宿主商城 API 配置
	Chatbot     ChatbotConfig     `mapstructure:"chatbot"`     // 聊天机器人配置
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`   // 接口限流配置
}

// ServerConfig 服务器相关配置
type ServerConfig struct {
	Port int      `mapstructure:"port"` // 监听端口，默认 8080
	Mode string   `mapstructure:"mode"` // 运行模式: debug / release
	CORS []string `mapstructure:"cors"` // CORS 允许的域名
}

// DatabaseConfig 数据库连接配置
// Driver 为 mysql 时使用 MySQL 字段，为 sqlite 时使用 SQLitePath
type DatabaseConfig struct {
	Driver     string      `mapstructure:"driver"`      // mysql / sqlite
	SQLitePath string      `mapstructure:"sqlite_path"` // SQLite 数据库文件路径
	MySQL      MySQLConfig `mapstructure:"mysql"`
}

// MySQLConfig MySQL 数据库连接配置
type MySQLConfig struct {
	Host         string `mapstructure:"host"`           // 数据库主机地址
	Port         int    `mapstructure:"port"`           // 数据库端口
	Username     string `mapstructure:"username"`       // 数据库用户名
	Password     string `mapstructure:"password"`       // 数据库密码
	Database     string `mapstructure:"database"`       // 数据库名称
	Charset      string `mapstructure:"charset"`        // 字符集
	MaxIdleConns int    `mapstructure:"max_idle_conns"` // 最大空闲连接数
	MaxOpenConns int    `mapstructure:"max_open_conns"` // 最大打开连接数
	MaxLifetime  int    `mapstructure:"max_lifetime"`   // 连接最大生命周期（秒）
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string        `mapstructure:"host"`      // Redis 主机地址
	Port     int           `mapstructure:"port"`      // Redis 端口
	Username string        `mapstructure:"username"`  // Redis 用户名
	Password string        `mapstructure:"password"`  // Redis 密码
	DB       int           `mapstructure:"db"`        // 数据库索引 (0-15)
	PoolSize int           `mapstructure:"pool_size"` // 连接池大小
	RoleTTL  time.Duration `mapstructure:"role_ttl"`  // 角色偏好缓存时间
}

// JWTConfig JWT 认证配置
// Token 由宿主商城签发，这里只负责校验
type JWTConfig struct {
	Secret       string        `mapstructure:"secret"`        // JWT 签名密钥，至少32字符
	Issuer       string        `mapstructure:"issuer"`        // 签发者
	AccessExpire time.Duration `mapstructure:"access_expire"` // token 子命令签发的有效期
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug/info/warn/error
	Format string `mapstructure:"format"` // 日志格式: json/text
}

// AIConfig AI 服务配置
type AIConfig struct {
	QwenAPIKey string        `mapstructure:"qwen_api_key"` // Qwen API Key
	Endpoint   string        `mapstructure:"endpoint"`     // DashScope 接口地址
	Model      string        `mapstructure:"model"`        // 模型名称
	Timeout    time.Duration `mapstructure:"timeout"`      // 单次请求超时
}

// MarketplaceConfig 宿主商城 REST API 配置
type MarketplaceConfig struct {
	Name     string        `mapstructure:"name"`      // 商城名称，出现在提示词中
	BaseURL  string        `mapstructure:"base_url"`  // API 根地址
	APIToken string        `mapstructure:"api_token"` // 服务间调用的 Token
	Timeout  time.Duration `mapstructure:"timeout"`   // 单次请求超时
}

// ChatbotConfig 聊天机器人的业务配置
type ChatbotConfig struct {
	Enabled               bool   `mapstructure:"enabled"`                  // 总开关
	VendorAccess          bool   `mapstructure:"vendor_access"`            // 是否允许卖家角色
	CustomerAccess        bool   `mapstructure:"customer_access"`          // 是否允许买家角色
	MaxMessagesPerSession int    `mapstructure:"max_messages_per_session"` // 每小时最多消息数
	RetentionDays         int    `mapstructure:"retention_days"`           // 历史保留天数，0 表示不清理
	WelcomeMessage        string `mapstructure:"welcome_message"`          // 欢迎语
	WidgetPosition        string `mapstructure:"widget_position"`          // 前端挂件位置
	HistoryTurns          int    `mapstructure:"history_turns"`            // 提示词中携带的历史轮数
}

// RateLimitConfig 按 IP 的突发流量限制
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`   // 每秒补充的请求数
	Burst   int     `mapstructure:"burst"` // 桶容量
}

// 业务配置的取值范围
const (
	MinMessagesPerSession = 10
	MaxMessagesPerSession = 200
	MaxRetentionDays      = 365
)

// Load 从指定路径加载配置文件
// 支持 .env 文件和环境变量覆盖配置项
// 参数:
//   - configPath: 配置文件目录路径 (如 "./configs")
//
// 返回:
//   - *Config: 配置对象
//   - error: 如果加载失败则返回错误
func Load(configPath string) (*Config, error) {
	loadDotEnv()

	// 创建新的 viper 实例
	v := viper.New()

	// 设置配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	// 启用环境变量
	// 例如: DATABASE_DRIVER -> database.driver
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)
	setDefaults(v)

	// 读取配置文件（如果不存在则使用默认值和环境变量）
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Chatbot.normalize()
	return &cfg, nil
}

// loadDotEnv 在非生产环境下加载 .env 文件
// 文件不存在时忽略
func loadDotEnv() {
	if strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		return
	}
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] failed to load .env: %v", err)
	}
}

// normalize 把越界的业务配置拉回合法范围
func (c *ChatbotConfig) normalize() {
	if c.MaxMessagesPerSession < MinMessagesPerSession {
		c.MaxMessagesPerSession = MinMessagesPerSession
	}
	if c.MaxMessagesPerSession > MaxMessagesPerSession {
		c.MaxMessagesPerSession = MaxMessagesPerSession
	}
	if c.RetentionDays < 0 {
		c.RetentionDays = 0
	}
	if c.RetentionDays > MaxRetentionDays {
		c.RetentionDays = MaxRetentionDays
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = 5
	}
}

// bindEnvVariables 绑定环境变量到配置项
func bindEnvVariables(v *viper.Viper) {
	// 服务器配置
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// 数据库配置
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.sqlite_path", "SQLITE_PATH")
	v.BindEnv("database.mysql.host", "MYSQL_HOST")
	v.BindEnv("database.mysql.port", "MYSQL_PORT")
	v.BindEnv("database.mysql.username", "MYSQL_USERNAME")
	v.BindEnv("database.mysql.password", "MYSQL_PASSWORD")
	v.BindEnv("database.mysql.database", "MYSQL_DATABASE")

	// Redis 配置
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.username", "REDIS_USERNAME")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT 配置
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// AI 配置
	v.BindEnv("ai.qwen_api_key", "QWEN_API_KEY")

	// 商城 API
	v.BindEnv("marketplace.base_url", "MARKETPLACE_BASE_URL")
	v.BindEnv("marketplace.api_token", "MARKETPLACE_API_TOKEN")
}

// setDefaults 设置配置项的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors", []string{"http://localhost:3000", "http://localhost:5173"})

	// 数据库默认配置
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.sqlite_path", "chatbot.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.charset", "utf8mb4")
	v.SetDefault("database.mysql.max_idle_conns", 10)
	v.SetDefault("database.mysql.max_open_conns", 100)
	v.SetDefault("database.mysql.max_lifetime", 3600)

	// Redis 默认配置
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.role_ttl", "10m")

	// JWT 默认配置
	v.SetDefault("jwt.issuer", "marketplace")
	v.SetDefault("jwt.access_expire", "24h")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// AI 默认配置
	v.SetDefault("ai.endpoint", "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation")
	v.SetDefault("ai.model", "qwen-turbo")
	v.SetDefault("ai.timeout", "30s")

	// 商城 API 默认配置
	v.SetDefault("marketplace.name", "Dokan")
	v.SetDefault("marketplace.base_url", "http://localhost/wp-json")
	v.SetDefault("marketplace.timeout", "10s")

	// 聊天机器人默认配置
	v.SetDefault("chatbot.enabled", true)
	v.SetDefault("chatbot.vendor_access", true)
	v.SetDefault("chatbot.customer_access", true)
	v.SetDefault("chatbot.max_messages_per_session", 50)
	v.SetDefault("chatbot.retention_days", 30)
	v.SetDefault("chatbot.welcome_message", "Hello! I'm your AI assistant. How can I help you today?")
	v.SetDefault("chatbot.widget_position", "bottom-right")
	v.SetDefault("chatbot.history_turns", 5)

	// 限流默认配置
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 2)
	v.SetDefault("ratelimit.burst", 10)
}
