package models

import (
	"strconv"
	"time"
)

const (
	RoleAdministrators = "Administrators"
	RoleMembers        = "Members"
)

// User 登录身份为 email；签发凭证由外部认证服务负责
type User struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username string `gorm:"size:150;not null" json:"username"`

	LastSeenAt *time.Time `gorm:"index" json:"last_seen_at,omitempty"`

	Roles []Role `gorm:"many2many:user_roles;" json:"roles"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role 对应 Administrators / Members 两个组
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"uniqueIndex;size:80;not null" json:"name"`
}

// MarshalJSON 角色只输出名字
func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(r.Name)), nil
}

func (u *User) HasRole(name string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (u *User) IsAdministrator() bool { return u.HasRole(RoleAdministrators) }

// IsMember 管理员权限是会员权限的超集
func (u *User) IsMember() bool { return u.HasRole(RoleMembers) || u.IsAdministrator() }

func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
