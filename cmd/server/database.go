package main

import (
	"fmt"
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace-chatbot-server/internal/config"
	"marketplace-chatbot-server/internal/model"
)

// initDatabase 初始化数据库连接
// driver 为 sqlite 时使用本地文件，其余情况连接 MySQL
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	// 配置 GORM logger
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}
	gormCfg := &gorm.Config{Logger: gormLogger}

	if cfg.Database.Driver == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.Database.SQLitePath), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		log.Printf("[INFO] Database connected: sqlite %s", cfg.Database.SQLitePath)
		return db, nil
	}

	m := cfg.Database.MySQL
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		m.Username,
		m.Password,
		m.Host,
		m.Port,
		m.Database,
		m.Charset,
	)

	db, err := gorm.Open(mysql.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(m.MaxIdleConns)
	sqlDB.SetMaxOpenConns(m.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(m.MaxLifetime) * time.Second)

	log.Printf("[INFO] Database connected: mysql %s:%d/%s", m.Host, m.Port, m.Database)
	return db, nil
}

// autoMigrate 自动迁移数据库表
func autoMigrate(db *gorm.DB) error {
	log.Println("[INFO] Running database migrations...")

	if err := db.AutoMigrate(
		&model.Conversation{},
		&model.Preference{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}

	log.Println("[INFO] Database migrations completed")
	return nil
}
