// app/bootstrap.go
package app

import (
	"context"
	"log/slog"

	"Gin_postgres_redis_book_catalog/config"
	"Gin_postgres_redis_book_catalog/db"
)

// Bootstrap 确保两个角色组存在，并把 ADMIN_EMAILS 中已有的用户提升为管理员。
// 用户本身由外部认证服务创建，这里不会新建账号。
func Bootstrap(ctx context.Context, cfg config.Config, repo *db.Repo, logger *slog.Logger) {
	if err := repo.EnsureRoles(ctx); err != nil {
		logger.Error("bootstrap roles failed", slog.Any("error", err))
		return
	}
	promoted, err := repo.PromoteAdmins(ctx, cfg.AdminEmails)
	if err != nil {
		logger.Error("bootstrap admins failed", slog.Any("error", err))
		return
	}
	if promoted > 0 {
		logger.Info("bootstrap promoted administrators", slog.Int("count", promoted))
	}

	n, err := repo.CountAdmins(ctx)
	if err == nil && n == 0 {
		logger.Warn("no administrator exists; set ADMIN_EMAILS to an existing user's email")
	}
}
