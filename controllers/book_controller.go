// controllers/book_controller.go
package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_book_catalog/app"
	"Gin_postgres_redis_book_catalog/db"
	"Gin_postgres_redis_book_catalog/models"
	"Gin_postgres_redis_book_catalog/search"
)

const (
	SearchModeHeader = "X-Search-Mode"
	dateLayout       = "2006-01-02"
)

type BookController struct{ *Srv }

func NewBookController(s *Srv) *BookController { return &BookController{Srv: s} }

type bookPage struct {
	Count      int64         `json:"count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Results    []models.Book `json:"results"`
}

// 缓存条目带上检索模式，命中时照样回写 X-Search-Mode
type cachedPage struct {
	Mode string   `json:"mode"`
	Page bookPage `json:"page"`
}

type bookDetail struct {
	models.Book
	models.RatingStats
}

// bookPayload 指针字段：PATCH 时缺省即不修改
type bookPayload struct {
	Title         *string `json:"title"`
	Author        *string `json:"author"`
	ISBN          *string `json:"isbn"`
	Description   *string `json:"description"`
	PageCount     *int    `json:"page_count"`
	Genre         *string `json:"genre"`
	PublishedDate *string `json:"published_date"`
}

func (p bookPayload) input() (db.BookInput, error) {
	in := db.BookInput{
		Title:       p.Title,
		Author:      p.Author,
		ISBN:        p.ISBN,
		Description: p.Description,
		PageCount:   p.PageCount,
		Genre:       p.Genre,
	}
	if p.PublishedDate != nil && *p.PublishedDate != "" {
		d, err := time.Parse(dateLayout, *p.PublishedDate)
		if err != nil {
			return in, &db.ValidationError{Field: "published_date", Message: "expected YYYY-MM-DD"}
		}
		in.PublishedDate = &d
	}
	return in, nil
}

func bookQuery(c *gin.Context) (search.Query, error) {
	q := search.Query{
		Term:     c.Query("search"),
		Title:    c.Query("title"),
		Author:   c.Query("author"),
		Genre:    c.Query("genre"),
		ISBN:     c.Query("isbn"),
		Ordering: c.Query("ordering"),
	}
	if v := c.Query("is_available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, &db.ValidationError{Field: "is_available", Message: "must be true or false"}
		}
		q.IsAvailable = &b
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"page_size", &q.PageSize}} {
		v := c.Query(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, &db.ValidationError{Field: f.name, Message: "must be a positive integer"}
		}
		*f.dst = n
	}
	return q, nil
}

// GET /api/books?search=&title=&author=&genre=&isbn=&is_available=&ordering=&page=&page_size=
func (bc *BookController) ListBooks(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := bookQuery(c)
	if err != nil {
		bc.respondError(c, err)
		return
	}
	if !search.ValidOrdering(q.Ordering) {
		bc.respondError(c, search.ErrInvalidOrdering)
		return
	}

	key, err := bc.Cache.Key(ctx, c.Request.URL.Query())
	if err != nil {
		bc.Log.WarnContext(ctx, "catalog cache key failed", slog.Any("error", err))
		key = ""
	}
	var cached cachedPage
	if hit, err := bc.Cache.Get(ctx, key, &cached); err == nil && hit {
		c.Header(SearchModeHeader, cached.Mode)
		c.Header("X-Cache", "HIT")
		c.JSON(http.StatusOK, cached.Page)
		return
	}

	res, err := bc.Search.Search(ctx, q)
	if err != nil {
		bc.respondError(c, err)
		return
	}
	page := bookPage{
		Count:      res.Count,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalPages: res.TotalPages,
		Results:    res.Books(),
	}
	if err := bc.Cache.Set(ctx, key, cachedPage{Mode: res.Mode.String(), Page: page}); err != nil {
		bc.Log.WarnContext(ctx, "catalog cache set failed", slog.Any("error", err))
	}
	c.Header(SearchModeHeader, res.Mode.String())
	if bc.Cache.Enabled() {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/books/:id 附带评分汇总
func (bc *BookController) GetBook(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		bc.respondError(c, err)
		return
	}
	b, err := bc.Repo.FindBookByID(c.Request.Context(), id)
	if err != nil {
		bc.respondError(c, err)
		return
	}
	stats, err := bc.Repo.RatingStats(c.Request.Context(), id)
	if err != nil {
		bc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookDetail{Book: *b, RatingStats: stats})
}

// POST /api/books（仅管理员）
func (bc *BookController) CreateBook(c *gin.Context) {
	var p bookPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	in, err := p.input()
	if err != nil {
		bc.respondError(c, err)
		return
	}
	b, err := bc.Repo.CreateBook(c.Request.Context(), app.CurrentUser(c), in)
	if err != nil {
		bc.respondError(c, err)
		return
	}
	bc.afterWrite(c, b)
	c.JSON(http.StatusCreated, b)
}

// PUT /api/books/:id 全量；PATCH /api/books/:id 部分
func (bc *BookController) UpdateBook(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		bc.respondError(c, err)
		return
	}
	var p bookPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	in, err := p.input()
	if err != nil {
		bc.respondError(c, err)
		return
	}
	partial := c.Request.Method == http.MethodPatch
	b, err := bc.Repo.UpdateBook(c.Request.Context(), app.CurrentUser(c), id, in, partial)
	if err != nil {
		bc.respondError(c, err)
		return
	}
	bc.afterWrite(c, b)
	c.JSON(http.StatusOK, b)
}

// afterWrite 维护检索向量并让列表缓存失效，均不影响响应
func (bc *BookController) afterWrite(c *gin.Context, b *models.Book) {
	bc.Search.RefreshVector(c.Request.Context(), b.ID)
	bc.bumpCatalog(c.Request.Context())
}
