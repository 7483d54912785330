package db

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/policy"
)

// Checkout 借出：原子操作 = 锁住 book → 校验 → 占用 is_available → 新建 borrowing。
// 校验顺序：不存在 → 不可借 → 已借过本书 → 超出一本限制。
func (r *Repo) Checkout(ctx context.Context, user *models.User, bookID uint) (*models.Borrowing, error) {
	if err := authorize(user, policy.ActionCheckout, policy.Collection(policy.KindBorrowing)); err != nil {
		return nil, err
	}

	var out *models.Borrowing
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住该书，同一本书的并发借出在此串行
		var b models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", bookID).Error; err != nil {
			return notFound(err)
		}
		if !b.IsAvailable {
			return ErrUnavailable
		}

		// 2) 同一本书 / 一本限制
		var n int64
		if err := tx.Model(&models.Borrowing{}).
			Where("user_id = ? AND book_id = ? AND returned_at IS NULL", user.ID, b.ID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyBorrowed
		}
		if err := tx.Model(&models.Borrowing{}).
			Where("user_id = ? AND returned_at IS NULL", user.ID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrLimitExceeded
		}

		// 3) 占位
		res := tx.Model(&models.Book{}).
			Where("id = ? AND is_available = ?", b.ID, true).
			Update("is_available", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUnavailable
		}

		// 4) 新建 borrowing；部分唯一索引兜底不同书之间的并发
		now := r.now()
		bw := &models.Borrowing{
			UserID:     user.ID,
			BookID:     b.ID,
			BorrowedAt: now,
			DueDate:    now.Add(r.loanPeriod()),
		}
		if err := tx.Create(bw).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrLimitExceeded
			}
			return err
		}
		b.IsAvailable = false
		bw.Book = &b
		bw.User = user
		out = bw
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Checkin 归还（仅管理员）：原子操作 = 完成 borrowing → 释放 is_available
func (r *Repo) Checkin(ctx context.Context, actor *models.User, borrowingID uint) (*models.Borrowing, error) {
	if err := authorize(actor, policy.ActionCheckin, policy.Collection(policy.KindBorrowing)); err != nil {
		return nil, err
	}

	var bw models.Borrowing
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Book").Preload("User").First(&bw, "id = ?", borrowingID).Error; err != nil {
			return notFound(err)
		}
		if bw.ReturnedAt != nil {
			return ErrAlreadyReturned
		}

		now := r.now()
		res := tx.Model(&models.Borrowing{}).
			Where("id = ? AND returned_at IS NULL", bw.ID).
			Updates(map[string]any{"returned_at": now, "returned_by": actor.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReturned
		}

		// 释放占用
		if err := tx.Model(&models.Book{}).
			Where("id = ?", bw.BookID).
			Update("is_available", true).Error; err != nil {
			return err
		}

		bw.ReturnedAt = &now
		bw.ReturnedBy = &actor.ID
		if bw.Book != nil {
			bw.Book.IsAvailable = true
		}
		return r.logAudit(tx, actor, models.AuditCheckin, strconv.FormatUint(uint64(bw.ID), 10), nil)
	})
	if err != nil {
		return nil, err
	}
	return &bw, nil
}

func (r *Repo) loanPeriod() time.Duration {
	if r.LoanPeriod <= 0 {
		return DefaultLoanPeriod
	}
	return r.LoanPeriod
}
