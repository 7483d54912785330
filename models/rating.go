package models

import "time"

const RatingTable = "book_ratings"

const (
	MinRating = 1
	MaxRating = 5
)

// BookRating 每个用户对每本书最多一条
type BookRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_rating_user_book" json:"user_id"`
	BookID    uint      `gorm:"not null;uniqueIndex:idx_rating_user_book;index" json:"book_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
	Book *Book `gorm:"foreignKey:BookID" json:"-"`
}

func (BookRating) TableName() string { return RatingTable }

// RatingStats 书籍详情附带的汇总
type RatingStats struct {
	Average *float64 `json:"average_rating"`
	Count   int64    `json:"ratings_count"`
}
