// controllers/srv.go
package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_book_catalog/app"
	"Gin_postgres_redis_book_catalog/cache"
	"Gin_postgres_redis_book_catalog/config"
	"Gin_postgres_redis_book_catalog/db"
	"Gin_postgres_redis_book_catalog/events"
	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/search"
	"Gin_postgres_redis_book_catalog/session"
)

type Srv struct {
	Repo     *db.Repo
	Search   *search.Resolver
	Sessions session.Store
	Cache    *cache.Catalog
	Events   events.Publisher
	Log      *slog.Logger
	Cfg      config.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:     a.Repo,
		Search:   a.Search,
		Sessions: a.Sessions,
		Cache:    a.Cache,
		Events:   a.Events,
		Log:      a.Log,
		Cfg:      a.Config,
	}
}

// --- helpers ---

// bumpCatalog 让已缓存的书目列表失效；失败只记日志
func (s *Srv) bumpCatalog(ctx context.Context) {
	if err := s.Cache.Bump(ctx); err != nil {
		s.Log.WarnContext(ctx, "catalog cache bump failed", slog.Any("error", err))
	}
}

// publish 事务提交后发事件；失败不影响响应
func (s *Srv) publish(ctx context.Context, t events.Type, b *models.Borrowing) {
	ev := events.NewBorrowingEvent(t, b, s.Repo.Now())
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Log.WarnContext(ctx, "publish borrowing event failed",
			slog.String("type", string(t)),
			slog.Uint64("borrowing_id", uint64(b.ID)),
			slog.Any("error", err),
		)
	}
}

// 清除业务会话 Cookie
func (s *Srv) clearAppCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(s.Cfg.WebOrigin, "https://"),
	})
}

func idParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &db.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return uint(id), nil
}

func optUintQuery(c *gin.Context, name string) (uint, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, &db.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return uint(id), nil
}
