package models

import "time"

const AuditLogTable = "audit_log"

const (
	AuditBookCreated  = "book.created"
	AuditBookUpdated  = "book.updated"
	AuditCheckin      = "borrowing.checked_in"
	AuditRolesChanged = "user.roles_changed"
)

// AuditLog 记录管理员操作
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    string    `gorm:"size:36;index;not null" json:"actor_id"`
	ActorEmail string    `gorm:"size:255" json:"actor_email"`
	Action     string    `gorm:"size:64;index;not null" json:"action"`
	TargetID   string    `gorm:"size:64" json:"target_id"`
	Detail     *string   `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string { return AuditLogTable }
