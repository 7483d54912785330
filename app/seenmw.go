// app/seenmw.go
package app

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"Gin_postgres_redis_book_catalog/db"
)

// TouchLastSeen 每个用户每个 throttle 窗口最多写一次 last_seen_at；没有 Redis 时跳过
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || rdb == nil {
			c.Next()
			return
		}

		key := "user:lastseen:" + u.ID
		if ok, _ := rdb.SetNX(c, key, "1", throttle).Result(); ok {
			if err := repo.TouchUserSeen(c, u.ID); err != nil { // 不阻塞请求
				logger.WarnContext(c, "touch last seen failed", slog.String("user_id", u.ID), slog.Any("error", err))
			}
		}
		c.Next()
	}
}
