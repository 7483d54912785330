// Package policy decides whether a user may perform an action on a resource.
// It has no I/O; callers load the user (with roles) and the resource owner first.
package policy

import "Gin_postgres_redis_book_catalog/models"

type Action string

const (
	ActionRead     Action = "read"
	ActionList     Action = "list"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionCheckout Action = "checkout"
	ActionCheckin  Action = "checkin"
)

type Kind string

const (
	KindBook      Kind = "book"
	KindRating    Kind = "rating"
	KindBorrowing Kind = "borrowing"
	KindUser      Kind = "user"
)

// Resource 资源类别 + 可选的拥有者；OwnerID 为空表示整个集合
type Resource struct {
	Kind    Kind
	OwnerID string
}

func Collection(k Kind) Resource { return Resource{Kind: k} }

func Owned(k Kind, ownerID string) Resource { return Resource{Kind: k, OwnerID: ownerID} }

// Decision 拒绝时区分匿名（401）与已登录（403）
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) Allowed() bool { return d == Allow }

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

// Authorize 纯函数；user 为 nil 表示匿名
func Authorize(user *models.User, action Action, res Resource) Decision {
	if user != nil && user.IsAdministrator() {
		return Allow
	}

	// 公开读
	if (res.Kind == KindBook || res.Kind == KindRating) && isRead(action) {
		return Allow
	}

	if user == nil {
		return DenyUnauthenticated
	}

	switch res.Kind {
	case KindBook:
		// 写操作仅管理员
		return DenyForbidden

	case KindBorrowing:
		switch action {
		case ActionCheckout:
			if user.IsMember() {
				return Allow
			}
			return DenyForbidden
		case ActionRead, ActionList:
			if res.OwnerID == user.ID {
				return Allow
			}
			return DenyForbidden
		}
		return DenyForbidden

	case KindRating:
		switch action {
		case ActionCreate:
			return Allow
		case ActionUpdate, ActionDelete:
			if res.OwnerID != "" && res.OwnerID == user.ID {
				return Allow
			}
		}
		return DenyForbidden

	case KindUser:
		if isRead(action) && res.OwnerID == user.ID {
			return Allow
		}
		return DenyForbidden
	}
	return DenyForbidden
}

func isRead(a Action) bool { return a == ActionRead || a == ActionList }
