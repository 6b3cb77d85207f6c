package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"marketplace-chatbot-server/internal/cache"
	"marketplace-chatbot-server/internal/config"
	"marketplace-chatbot-server/internal/handler"
	"marketplace-chatbot-server/internal/marketplace"
	"marketplace-chatbot-server/internal/middleware"
	"marketplace-chatbot-server/internal/repository"
	"marketplace-chatbot-server/internal/service"
	"marketplace-chatbot-server/pkg/jwt"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 初始化数据库
	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	// 自动迁移数据库表
	if err := autoMigrate(db); err != nil {
		return err
	}

	// 初始化 Redis
	redisCache, err := cache.NewRedisCache(cfg)
	if err != nil {
		return err
	}

	// 初始化 JWT 服务
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpire)

	// 外部依赖：商城 API 与 AI 引擎
	mp := marketplace.NewClient(cfg.Marketplace)
	ai := service.NewAIService(cfg.AI)

	// 初始化 Repository 层
	conversationRepo := repository.NewConversationRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)

	// 初始化 Service 层
	history := service.NewHistoryService(conversationRepo)
	registry := service.NewIntentRegistry(
		service.NewSearchProductAction(mp),
		service.NewCheckOrderAction(mp),
	)
	chatbot := service.NewChatbotService(
		cfg.Chatbot,
		history,
		service.NewContextBuilder(mp, mp, mp),
		service.NewPromptTemplates(cfg.Marketplace.Name),
		service.NewIntentDetector(ai, registry),
		registry,
		ai,
		redisCache,
	)
	roles := service.NewRoleService(cfg.Chatbot, mp, mp, preferenceRepo, redisCache, history)

	// 初始化 Handler 层
	chatbotHandler := handler.NewChatbotHandler(chatbot, roles, cfg.Chatbot)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 全局中间件
	router.Use(middleware.RequestIDMiddleware())           // 请求 ID
	router.Use(middleware.LoggerMiddleware())              // 请求日志
	router.Use(middleware.RecoveryMiddleware())            // 恢复 panic
	router.Use(middleware.CORSMiddleware(cfg.Server.CORS)) // CORS

	registerRoutes(router, cfg, jwtService, redisCache, chatbotHandler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Log.Level == "debug" {
		go logProcessedEvents(ctx, redisCache)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
		// AI 回复可能较慢，写超时要大于 AI 请求超时
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.AI.Timeout + cfg.Marketplace.Timeout + 10*time.Second,
	}

	go func() {
		log.Printf("[INFO] Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] Server failed: %v", err)
			stop()
		}
	}()

	// 优雅关闭
	<-ctx.Done()
	log.Println("[INFO] Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if err := redisCache.Close(); err != nil {
		log.Printf("[WARN] Failed to close redis: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("[INFO] Server exited")
	return nil
}

// registerRoutes 注册所有路由
func registerRoutes(
	router *gin.Engine,
	cfg *config.Config,
	jwtService *jwt.JWTService,
	redisCache *cache.RedisCache,
	chatbotHandler *handler.ChatbotHandler,
) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := redisCache.Ping(c.Request.Context()); err != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	})

	v1 := router.Group("/api/v1")

	// 聊天相关（需要登录）
	chatbot := v1.Group("/chatbot")
	chatbot.Use(middleware.AuthMiddleware(jwtService, redisCache))
	if cfg.RateLimit.Enabled {
		chatbot.Use(middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware())
	}
	chatbotHandler.RegisterRoutes(chatbot)
}

// logProcessedEvents 调试模式下打印对话完成事件
func logProcessedEvents(ctx context.Context, redisCache *cache.RedisCache) {
	sub := redisCache.SubscribeMessageProcessed(ctx)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event cache.MessageProcessedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[WARN] [events] bad payload: %v", err)
				continue
			}
			log.Printf("[DEBUG] [events] user_id=%d role=%s message=%q", event.UserID, event.Role, event.Message)
		}
	}
}
