package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_book_catalog/app"
)

// GET /healthz
func (s *Srv) Health(c *gin.Context) {
	c.JSON(http.StatusOK, app.H{
		"ok": true,
		"search": app.H{
			"capability": s.Search.Capability().String(),
			"stats":      s.Search.Stats().Snapshot(),
		},
	})
}
