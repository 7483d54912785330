package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/policy"
)

// BookInput 创建/更新书籍；nil 表示不修改。is_available 只由借还维护，这里不接受。
type BookInput struct {
	Title         *string
	Author        *string
	ISBN          *string
	Description   *string
	PageCount     *int
	Genre         *string
	PublishedDate *time.Time
}

func (in BookInput) validate(partial bool) error {
	required := []struct {
		field string
		v     *string
		max   int
	}{
		{"title", in.Title, 255},
		{"author", in.Author, 255},
		{"isbn", in.ISBN, 13},
	}
	for _, f := range required {
		if f.v == nil {
			if !partial {
				return invalid(f.field, "this field is required")
			}
			continue
		}
		s := strings.TrimSpace(*f.v)
		if s == "" {
			return invalid(f.field, "this field may not be blank")
		}
		if len([]rune(s)) > f.max {
			return invalid(f.field, "too long")
		}
	}
	if in.Genre != nil && len([]rune(*in.Genre)) > 100 {
		return invalid("genre", "too long")
	}
	if in.PageCount != nil && *in.PageCount <= 0 {
		return invalid("page_count", "must be a positive integer")
	}
	return nil
}

func (in BookInput) apply(b *models.Book) {
	if in.Title != nil {
		b.Title = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		b.Author = strings.TrimSpace(*in.Author)
	}
	if in.ISBN != nil {
		b.ISBN = strings.TrimSpace(*in.ISBN)
	}
	if in.Description != nil {
		b.Description = *in.Description
	}
	if in.PageCount != nil {
		b.PageCount = in.PageCount
	}
	if in.Genre != nil {
		b.Genre = strings.TrimSpace(*in.Genre)
	}
	if in.PublishedDate != nil {
		b.PublishedDate = in.PublishedDate
	}
}

func (r *Repo) FindBookByID(ctx context.Context, id uint) (*models.Book, error) {
	var b models.Book
	if err := r.DB.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *Repo) CreateBook(ctx context.Context, actor *models.User, in BookInput) (*models.Book, error) {
	if err := authorize(actor, policy.ActionCreate, policy.Collection(policy.KindBook)); err != nil {
		return nil, err
	}
	if err := in.validate(false); err != nil {
		return nil, err
	}
	b := &models.Book{IsAvailable: true}
	in.apply(b)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := isbnTaken(tx, b.ISBN, 0); err != nil {
			return err
		}
		if err := tx.Create(b).Error; err != nil {
			return duplicateISBN(err)
		}
		return r.logAudit(tx, actor, models.AuditBookCreated, b.ISBN, &b.Title)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBook partial=false 时要求完整字段（PUT），否则按 PATCH 处理
func (r *Repo) UpdateBook(ctx context.Context, actor *models.User, id uint, in BookInput, partial bool) (*models.Book, error) {
	if err := authorize(actor, policy.ActionUpdate, policy.Collection(policy.KindBook)); err != nil {
		return nil, err
	}
	if err := in.validate(partial); err != nil {
		return nil, err
	}

	var b models.Book
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		in.apply(&b)
		if err := isbnTaken(tx, b.ISBN, b.ID); err != nil {
			return err
		}
		// 只写可编辑列，避免覆盖并发借还修改的 is_available
		if err := tx.Model(&b).Select(
			"title", "author", "isbn", "description", "page_count", "genre", "published_date", "updated_at",
		).Updates(&b).Error; err != nil {
			return duplicateISBN(err)
		}
		return r.logAudit(tx, actor, models.AuditBookUpdated, b.ISBN, &b.Title)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func isbnTaken(tx *gorm.DB, isbn string, exceptID uint) error {
	var n int64
	if err := tx.Model(&models.Book{}).Where("isbn = ? AND id <> ?", isbn, exceptID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return invalid("isbn", "book with this isbn already exists")
	}
	return nil
}

func duplicateISBN(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return invalid("isbn", "book with this isbn already exists")
	}
	return err
}
