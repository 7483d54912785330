package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"Gin_postgres_redis_book_catalog/models"
)

// logAudit 在调用方事务内写入
func (r *Repo) logAudit(tx *gorm.DB, actor *models.User, action, targetID string, detail *string) error {
	entry := &models.AuditLog{
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		TargetID:   targetID,
		Detail:     detail,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *Repo) ListAudit(ctx context.Context, action string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.DB.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	out := []models.AuditLog{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
