package database

import (
	"fmt"
	"log"

	"github.com/auditguard/embedding-go/internal/config"
	"github.com/auditguard/embedding-go/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() (*gorm.DB, error) {
	cfg := config.AppConfig
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	logMode := logger.Warn
	if cfg.Server.Env == "development" {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 获取底层的sql.DB设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := autoMigrate(db); err != nil {
		log.Printf("⚠️  Database migration warning: %v", err)
	}

	DB = db
	log.Println("✅ Database connected successfully")
	return db, nil
}

// autoMigrate 自动迁移表结构
// pgvector扩展必须先于embeddings表创建，否则vector(384)列类型无法解析；
// 完整的schema（含ivfflat索引）由cmd/migrate管理，这里仅兜底
func autoMigrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Printf("⚠️  Failed to create vector extension (may lack privileges): %v", err)
	}

	// 按依赖顺序迁移
	if err := db.AutoMigrate(&models.Document{}); err != nil {
		return fmt.Errorf("failed to migrate documents: %w", err)
	}
	if err := db.AutoMigrate(&models.Chunk{}); err != nil {
		return fmt.Errorf("failed to migrate chunks: %w", err)
	}
	if err := db.AutoMigrate(&models.Embedding{}); err != nil {
		return fmt.Errorf("failed to migrate embeddings: %w", err)
	}

	return nil
}

func CloseDB() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
