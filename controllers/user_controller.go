package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"Gin_postgres_redis_book_catalog/app"
	"Gin_postgres_redis_book_catalog/db"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	q := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := uc.Repo.ListUsers(c.Request.Context(), q, page, size)
	if err != nil {
		uc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"total": res.Total,
		"users": res.Users,
	})
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		uc.respondError(c, &db.ValidationError{Field: "id", Message: "invalid uuid"})
		return
	}
	user, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		uc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// PUT /api/users/:id/roles {roles: [...]}
func (uc *UserController) SetRoles(c *gin.Context) {
	var in struct {
		Roles []string `json:"roles"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	user, err := uc.Repo.SetUserRoles(ctx, app.CurrentUser(c), id, in.Roles)
	if err != nil {
		uc.respondError(c, err)
		return
	}
	// 角色变了，旧会话作废
	if uc.Sessions != nil {
		if err := uc.Sessions.RevokeAllForUser(ctx, id); err != nil {
			uc.Log.WarnContext(ctx, "revoke sessions failed", slog.String("user_id", id), slog.Any("error", err))
		}
	}
	c.JSON(http.StatusOK, app.H{"user": user})
}

// GET /api/auth/me
func (uc *UserController) Me(c *gin.Context) {
	u := app.CurrentUser(c)
	c.JSON(http.StatusOK, app.H{
		"user":             u,
		"is_administrator": u.IsAdministrator(),
		"is_member":        u.IsMember(),
	})
}

// POST /api/auth/logout
func (uc *UserController) Logout(c *gin.Context) {
	if sid := app.SessionID(c); sid != "" && uc.Sessions != nil {
		if err := uc.Sessions.Delete(c.Request.Context(), sid); err != nil {
			uc.Log.WarnContext(c, "delete session failed", slog.Any("error", err))
		}
	}
	uc.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/audit?action=&limit=（仅管理员）
func (uc *UserController) ListAudit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := uc.Repo.ListAudit(c.Request.Context(), c.Query("action"), limit)
	if err != nil {
		uc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"count": len(list), "results": list})
}
