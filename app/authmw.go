package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"Gin_postgres_redis_book_catalog/db"
	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/policy"
	"Gin_postgres_redis_book_catalog/session"
)

const AppSessionCookie = "app_session"

const (
	ctxUser      = "user"
	ctxSessionID = "sessionID"
)

var errInvalidToken = errors.New("invalid token")

// Authenticate 识别调用者但不强制登录：Bearer JWT（sub=用户 ID）优先，其次 app_session Cookie。
// 显式给出但无效的 Bearer 直接 401；失效的 Cookie 按匿名处理。
func Authenticate(sessions session.Store, repo *db.Repo, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if auth := c.GetHeader("Authorization"); auth != "" {
			uid, err := parseBearer(auth, jwtSecret)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid token", "code": "unauthorized"})
				return
			}
			u, err := repo.FindUserByID(ctx, uid)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unknown user", "code": "unauthorized"})
				return
			}
			c.Set(ctxUser, u)
			c.Next()
			return
		}

		if sessions == nil {
			c.Next()
			return
		}
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.Next()
			return
		}
		as, err := sessions.Get(ctx, ck.Value)
		if err != nil {
			c.Next()
			return
		}
		// 确认用户仍存在
		u, err := repo.FindUserByID(ctx, as.UserID)
		if err != nil {
			_ = sessions.Delete(ctx, ck.Value)
			c.Next()
			return
		}
		_ = sessions.Touch(ctx, ck.Value)
		c.Set(ctxUser, u)
		c.Set(ctxSessionID, ck.Value)
		c.Next()
	}
}

func parseBearer(header, secret string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || secret == "" {
		return "", errInvalidToken
	}
	tok, err := jwt.Parse(strings.TrimSpace(raw), func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", errInvalidToken
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidToken
	}
	return sub, nil
}

// CurrentUser 匿名返回 nil
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func SessionID(c *gin.Context) string { return c.GetString(ctxSessionID) }

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "authentication required", "code": "unauthorized"})
			return
		}
		c.Next()
	}
}

// Authorize 集合级检查，例如管理员专用路由；行级检查在仓储层完成
func Authorize(action policy.Action, kind policy.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch policy.Authorize(CurrentUser(c), action, policy.Collection(kind)) {
		case policy.Allow:
			c.Next()
		case policy.DenyUnauthenticated:
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "authentication required", "code": "unauthorized"})
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden", "code": "forbidden"})
		}
	}
}
