package models

import "time"

const BorrowingTable = "borrowings"

// Borrowing 一次借阅；returned_at 为空即 ACTIVE
type Borrowing struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"size:36;index;not null" json:"user_id"`
	BookID     uint      `gorm:"index;not null" json:"book_id"`
	BorrowedAt time.Time `gorm:"index;not null" json:"borrowed_at"`
	DueDate    time.Time `gorm:"index;not null" json:"due_date"`

	ReturnedAt *time.Time `gorm:"index" json:"returned_at,omitempty"`
	ReturnedBy *string    `gorm:"size:36" json:"returned_by,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Borrowing) TableName() string { return BorrowingTable }

func (b Borrowing) IsActive() bool { return b.ReturnedAt == nil }

func (b Borrowing) IsOverdue(now time.Time) bool {
	return b.IsActive() && now.After(b.DueDate)
}
