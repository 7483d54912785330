package models

import "time"

const BookTable = "books"

// Book 目录中的一本书；is_available 只由借还流程维护
type Book struct {
	ID            uint       `gorm:"primaryKey" json:"id" db:"id"`
	Title         string     `gorm:"size:255;not null;index" json:"title" db:"title"`
	Author        string     `gorm:"size:255;not null;index" json:"author" db:"author"`
	ISBN          string     `gorm:"size:13;uniqueIndex;not null" json:"isbn" db:"isbn"`
	Description   string     `gorm:"type:text" json:"description" db:"description"`
	PageCount     *int       `gorm:"check:page_count IS NULL OR page_count > 0" json:"page_count,omitempty" db:"page_count"`
	Genre         string     `gorm:"size:100;index" json:"genre" db:"genre"`
	PublishedDate *time.Time `gorm:"type:date" json:"published_date,omitempty" db:"published_date"`
	IsAvailable   bool       `gorm:"not null;default:true;index" json:"is_available" db:"is_available"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

func (Book) TableName() string { return BookTable }

// BookColumns 读路径显式列出，避开 search_vector 等附加列
var BookColumns = []string{
	"id", "title", "author", "isbn", "description", "page_count",
	"genre", "published_date", "is_available", "created_at", "updated_at",
}
