package db

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Gin_postgres_redis_book_catalog/config"
	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/search"
)

// Connect 按 DB_DRIVER 打开 postgres 或 sqlite（本地开发/测试用，仅 basic 检索）
func Connect(cfg config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres", "":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	if cfg.DBDriver == "sqlite" {
		// sqlite 单写者
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	return gdb, nil
}

func Migrate(ctx context.Context, gdb *gorm.DB, log *slog.Logger) error {
	db := gdb.WithContext(ctx)
	if err := db.AutoMigrate(
		&models.User{}, &models.Role{}, &models.Book{},
		&models.Borrowing{}, &models.BookRating{}, &models.AuditLog{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	stmts := []string{
		// 同一本书最多一条“未归还”
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_book
		  ON %s (book_id) WHERE returned_at IS NULL`, models.BorrowingTable, models.BorrowingTable),
		// 同一用户最多一条“未归还”
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_user
		  ON %s (user_id) WHERE returned_at IS NULL`, models.BorrowingTable, models.BorrowingTable),
		// 逾期查询
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_open_due_date
		  ON %s (due_date) WHERE returned_at IS NULL`, models.BorrowingTable, models.BorrowingTable),
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return fmt.Errorf("migrate indexes: %w", err)
		}
	}

	if err := NewRepo(gdb).EnsureRoles(ctx); err != nil {
		return err
	}
	return search.EnsureSchema(ctx, gdb, log)
}
