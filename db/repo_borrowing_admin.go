// db/repo_borrowing_admin.go
package db

import (
	"context"

	"gorm.io/gorm"

	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/policy"
)

type BorrowingStatus string

const (
	StatusAll      BorrowingStatus = ""
	StatusActive   BorrowingStatus = "active"
	StatusReturned BorrowingStatus = "returned"
	StatusOverdue  BorrowingStatus = "overdue"
)

// BorrowingFilter UserID 为空表示全部用户（需管理员）
type BorrowingFilter struct {
	UserID string
	BookID uint
	Status BorrowingStatus
}

func (r *Repo) borrowings(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&models.Borrowing{}).Preload("Book").Preload("User")
}

// ListBorrowings 按调用者可见范围列出：管理员看全部，其余只看自己的
func (r *Repo) ListBorrowings(ctx context.Context, actor *models.User, f BorrowingFilter) ([]models.Borrowing, error) {
	if f.UserID == "" && actor != nil && !actor.IsAdministrator() {
		f.UserID = actor.ID
	}
	res := policy.Collection(policy.KindBorrowing)
	if f.UserID != "" {
		res = policy.Owned(policy.KindBorrowing, f.UserID)
	}
	if err := authorize(actor, policy.ActionList, res); err != nil {
		return nil, err
	}

	q := r.borrowings(ctx)
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.BookID != 0 {
		q = q.Where("book_id = ?", f.BookID)
	}
	switch f.Status {
	case StatusActive:
		q = q.Where("returned_at IS NULL")
	case StatusReturned:
		q = q.Where("returned_at IS NOT NULL")
	case StatusOverdue:
		q = q.Where("returned_at IS NULL AND due_date < ?", r.now())
	}

	out := []models.Borrowing{}
	if err := q.Order("borrowed_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FindBorrowing 不可见的记录按不存在处理
func (r *Repo) FindBorrowing(ctx context.Context, actor *models.User, id uint) (*models.Borrowing, error) {
	var bw models.Borrowing
	if err := r.borrowings(ctx).First(&bw, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	switch err := authorize(actor, policy.ActionRead, policy.Owned(policy.KindBorrowing, bw.UserID)); err {
	case nil:
		return &bw, nil
	case ErrForbidden:
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

// CurrentBorrowings 用户当前未归还的借阅
func (r *Repo) CurrentBorrowings(ctx context.Context, user *models.User) ([]models.Borrowing, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	return r.ListBorrowings(ctx, user, BorrowingFilter{UserID: user.ID, Status: StatusActive})
}

// BorrowingHistory 用户全部借阅记录
func (r *Repo) BorrowingHistory(ctx context.Context, user *models.User) ([]models.Borrowing, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	return r.ListBorrowings(ctx, user, BorrowingFilter{UserID: user.ID})
}

// OverdueBorrowings 全系统逾期（仅管理员），按到期时间倒序
func (r *Repo) OverdueBorrowings(ctx context.Context, actor *models.User) ([]models.Borrowing, error) {
	if err := authorize(actor, policy.ActionList, policy.Collection(policy.KindBorrowing)); err != nil {
		return nil, err
	}
	out := []models.Borrowing{}
	if err := r.borrowings(ctx).
		Where("returned_at IS NULL AND due_date < ?", r.now()).
		Order("due_date DESC, id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// AllBorrowings 全部记录（仅管理员）
func (r *Repo) AllBorrowings(ctx context.Context, actor *models.User) ([]models.Borrowing, error) {
	if err := authorize(actor, policy.ActionList, policy.Collection(policy.KindBorrowing)); err != nil {
		return nil, err
	}
	out := []models.Borrowing{}
	if err := r.borrowings(ctx).Order("borrowed_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
