// db/repo_users_admin.go
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/policy"
)

var knownRoles = []string{models.RoleAdministrators, models.RoleMembers}

// EnsureRoles 两个组不存在则创建
func (r *Repo) EnsureRoles(ctx context.Context) error {
	for _, name := range knownRoles {
		role := models.Role{Name: name}
		if err := r.DB.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
			Create(&role).Error; err != nil {
			return fmt.Errorf("ensure role %s: %w", name, err)
		}
	}
	return nil
}

func (r *Repo) findRoles(tx *gorm.DB, names []string) ([]models.Role, error) {
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != models.RoleAdministrators && n != models.RoleMembers {
			return nil, invalid("roles", fmt.Sprintf("unknown role %q", n))
		}
		seen[n] = true
	}
	roles := []models.Role{}
	if len(seen) == 0 {
		return roles, nil
	}
	keys := make([]string, 0, len(seen))
	for n := range seen {
		keys = append(keys, n)
	}
	if err := tx.Where("name IN ?", keys).Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// SetUserRoles 替换用户的角色集合（仅管理员）
func (r *Repo) SetUserRoles(ctx context.Context, actor *models.User, userID string, names []string) (*models.User, error) {
	if err := authorize(actor, policy.ActionUpdate, policy.Owned(policy.KindUser, userID)); err != nil {
		return nil, err
	}
	// 不允许撤掉自己的管理员身份，避免锁死
	if actor.ID == userID && !containsRole(names, models.RoleAdministrators) {
		return nil, invalid("roles", "cannot remove your own administrator role")
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			return notFound(err)
		}
		roles, err := r.findRoles(tx, names)
		if err != nil {
			return err
		}
		assoc := tx.Model(&u).Association("Roles")
		if len(roles) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(roles)
		}
		if err != nil {
			return err
		}
		detail := strings.Join(names, ",")
		return r.logAudit(tx, actor, models.AuditRolesChanged, userID, &detail)
	})
	if err != nil {
		return nil, err
	}
	return r.FindUserByID(ctx, userID)
}

// PromoteAdmins 把 ADMIN_EMAILS 中已存在的用户加入 Administrators
func (r *Repo) PromoteAdmins(ctx context.Context, emails []string) (int, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	var admin models.Role
	if err := r.DB.WithContext(ctx).Where("name = ?", models.RoleAdministrators).First(&admin).Error; err != nil {
		return 0, fmt.Errorf("load administrators role: %w", err)
	}
	promoted := 0
	for _, email := range emails {
		u, err := r.FindUserByEmail(ctx, email)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return promoted, err
		}
		if u.IsAdministrator() {
			continue
		}
		if err := r.DB.WithContext(ctx).Model(u).Association("Roles").Append(&admin); err != nil {
			return promoted, err
		}
		promoted++
	}
	return promoted, nil
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", models.RoleAdministrators).
		Count(&n).Error
	return n, err
}

func containsRole(names []string, role string) bool {
	for _, n := range names {
		if strings.TrimSpace(n) == role {
			return true
		}
	}
	return false
}

// authorize 把策略结果转成仓储层错误
func authorize(actor *models.User, action policy.Action, res policy.Resource) error {
	switch policy.Authorize(actor, action, res) {
	case policy.Allow:
		return nil
	case policy.DenyUnauthenticated:
		return ErrUnauthorized
	default:
		return ErrForbidden
	}
}
