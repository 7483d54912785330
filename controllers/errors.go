package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_book_catalog/app"
	"Gin_postgres_redis_book_catalog/db"
	"Gin_postgres_redis_book_catalog/search"
)

// 业务规则冲突统一 400，code 区分具体原因
var businessErrors = []struct {
	err  error
	code string
}{
	{db.ErrUnavailable, "unavailable"},
	{db.ErrAlreadyBorrowed, "already_borrowed"},
	{db.ErrLimitExceeded, "limit_exceeded"},
	{db.ErrAlreadyReturned, "already_returned"},
	{db.ErrDuplicateRating, "duplicate_rating"},
}

// respondError 把仓储层错误映射为 {"error", "code"}
func (s *Srv) respondError(c *gin.Context, err error) {
	var verr *db.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, app.H{"error": verr.Error(), "code": "invalid", "field": verr.Field})
		return
	case errors.Is(err, search.ErrInvalidOrdering):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error(), "code": "invalid_ordering"})
		return
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": "not found", "code": "not_found"})
		return
	case errors.Is(err, db.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, app.H{"error": err.Error(), "code": "unauthorized"})
		return
	case errors.Is(err, db.ErrForbidden):
		c.JSON(http.StatusForbidden, app.H{"error": err.Error(), "code": "forbidden"})
		return
	}
	for _, be := range businessErrors {
		if errors.Is(err, be.err) {
			c.JSON(http.StatusBadRequest, app.H{"error": be.err.Error(), "code": be.code})
			return
		}
	}

	_ = c.Error(err)
	s.Log.ErrorContext(c, "unhandled error", slog.String("path", c.FullPath()), slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, app.H{"error": "internal server error", "code": "internal"})
}

// badRequest 请求体无法解析
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, app.H{"error": err.Error(), "code": "invalid"})
}
