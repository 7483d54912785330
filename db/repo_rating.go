package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/policy"
)

type RatingInput struct {
	BookID  uint
	Rating  *int
	Comment *string
}

func validRating(v *int) error {
	if v == nil {
		return nil
	}
	if *v < models.MinRating || *v > models.MaxRating {
		return invalid("rating", fmt.Sprintf("must be between %d and %d", models.MinRating, models.MaxRating))
	}
	return nil
}

func (r *Repo) ratings(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&models.BookRating{}).Preload("User").Preload("Book")
}

// ListRatings bookID 为 0 表示全部
func (r *Repo) ListRatings(ctx context.Context, bookID uint) ([]models.BookRating, error) {
	q := r.ratings(ctx)
	if bookID != 0 {
		q = q.Where("book_id = ?", bookID)
	}
	out := []models.BookRating{}
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListRatingsByUser(ctx context.Context, user *models.User) ([]models.BookRating, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	out := []models.BookRating{}
	if err := r.ratings(ctx).Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) FindRating(ctx context.Context, id uint) (*models.BookRating, error) {
	var br models.BookRating
	if err := r.ratings(ctx).First(&br, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &br, nil
}

// CreateRating 每人每书一条
func (r *Repo) CreateRating(ctx context.Context, user *models.User, in RatingInput) (*models.BookRating, error) {
	if err := authorize(user, policy.ActionCreate, policy.Collection(policy.KindRating)); err != nil {
		return nil, err
	}
	if in.Rating == nil {
		return nil, invalid("rating", "this field is required")
	}
	if err := validRating(in.Rating); err != nil {
		return nil, err
	}
	if in.BookID == 0 {
		return nil, invalid("book_id", "this field is required")
	}
	if _, err := r.FindBookByID(ctx, in.BookID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("book_id", "book does not exist")
		}
		return nil, err
	}

	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.BookRating{}).
		Where("user_id = ? AND book_id = ?", user.ID, in.BookID).
		Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrDuplicateRating
	}

	br := &models.BookRating{UserID: user.ID, BookID: in.BookID, Rating: *in.Rating}
	if in.Comment != nil {
		br.Comment = *in.Comment
	}
	if err := r.DB.WithContext(ctx).Create(br).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateRating
		}
		return nil, err
	}
	return r.FindRating(ctx, br.ID)
}

// UpdateRating 仅 rating / comment 可改；本人或管理员
func (r *Repo) UpdateRating(ctx context.Context, actor *models.User, id uint, in RatingInput) (*models.BookRating, error) {
	br, err := r.ownedRating(ctx, actor, policy.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := validRating(in.Rating); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.Rating != nil {
		updates["rating"] = *in.Rating
	}
	if in.Comment != nil {
		updates["comment"] = *in.Comment
	}
	if len(updates) > 0 {
		if err := r.DB.WithContext(ctx).Model(&models.BookRating{}).
			Where("id = ?", br.ID).
			Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return r.FindRating(ctx, br.ID)
}

func (r *Repo) DeleteRating(ctx context.Context, actor *models.User, id uint) error {
	br, err := r.ownedRating(ctx, actor, policy.ActionDelete, id)
	if err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Delete(&models.BookRating{}, br.ID).Error
}

func (r *Repo) ownedRating(ctx context.Context, actor *models.User, action policy.Action, id uint) (*models.BookRating, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	br, err := r.FindRating(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, action, policy.Owned(policy.KindRating, br.UserID)); err != nil {
		return nil, err
	}
	return br, nil
}

// RatingStats 平均分与条数
func (r *Repo) RatingStats(ctx context.Context, bookID uint) (models.RatingStats, error) {
	var row struct {
		Avg   *float64
		Count int64
	}
	err := r.DB.WithContext(ctx).Model(&models.BookRating{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("book_id = ?", bookID).
		Scan(&row).Error
	if err != nil {
		return models.RatingStats{}, err
	}
	return models.RatingStats{Average: row.Avg, Count: row.Count}, nil
}
