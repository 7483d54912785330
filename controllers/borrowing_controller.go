// controllers/borrowing_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_book_catalog/app"
	"Gin_postgres_redis_book_catalog/db"
	"Gin_postgres_redis_book_catalog/events"
	"Gin_postgres_redis_book_catalog/models"
)

type BorrowingController struct{ *Srv }

func NewBorrowingController(s *Srv) *BorrowingController { return &BorrowingController{Srv: s} }

type borrowingView struct {
	models.Borrowing
	UserEmail string `json:"user_email"`
	IsActive  bool   `json:"is_active"`
	IsOverdue bool   `json:"is_overdue"`
}

func viewBorrowing(b models.Borrowing, now time.Time) borrowingView {
	v := borrowingView{
		Borrowing: b,
		IsActive:  b.IsActive(),
		IsOverdue: b.IsOverdue(now),
	}
	if b.User != nil {
		v.UserEmail = b.User.Email
	}
	return v
}

func (bc *BorrowingController) views(list []models.Borrowing) []borrowingView {
	now := bc.Repo.Now()
	out := make([]borrowingView, 0, len(list))
	for _, b := range list {
		out = append(out, viewBorrowing(b, now))
	}
	return out
}

// POST /api/borrowings/checkout {book_id}
func (bc *BorrowingController) Checkout(c *gin.Context) {
	var in struct {
		BookID uint `json:"book_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	bw, err := bc.Repo.Checkout(ctx, app.CurrentUser(c), in.BookID)
	if err != nil {
		bc.respondError(c, err)
		return
	}
	bc.publish(ctx, events.CheckedOut, bw)
	bc.bumpCatalog(ctx)
	c.JSON(http.StatusCreated, viewBorrowing(*bw, bc.Repo.Now()))
}

// POST /api/borrowings/:id/checkin（仅管理员）
func (bc *BorrowingController) Checkin(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		bc.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	bw, err := bc.Repo.Checkin(ctx, app.CurrentUser(c), id)
	if err != nil {
		bc.respondError(c, err)
		return
	}
	bc.publish(ctx, events.CheckedIn, bw)
	bc.bumpCatalog(ctx)
	c.JSON(http.StatusOK, viewBorrowing(*bw, bc.Repo.Now()))
}

// GET /api/borrowings?status=active|returned|overdue&user_id=&book_id=
func (bc *BorrowingController) ListBorrowings(c *gin.Context) {
	status := db.BorrowingStatus(c.Query("status"))
	switch status {
	case db.StatusAll, db.StatusActive, db.StatusReturned, db.StatusOverdue:
	default:
		bc.respondError(c, &db.ValidationError{Field: "status", Message: "must be one of active, returned, overdue"})
		return
	}
	bookID, err := optUintQuery(c, "book_id")
	if err != nil {
		bc.respondError(c, err)
		return
	}
	list, err := bc.Repo.ListBorrowings(c.Request.Context(), app.CurrentUser(c), db.BorrowingFilter{
		UserID: c.Query("user_id"),
		BookID: bookID,
		Status: status,
	})
	if err != nil {
		bc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"count": len(list), "results": bc.views(list)})
}

// GET /api/borrowings/:id，看不到的记录返回 404
func (bc *BorrowingController) GetBorrowing(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		bc.respondError(c, err)
		return
	}
	bw, err := bc.Repo.FindBorrowing(c.Request.Context(), app.CurrentUser(c), id)
	if err != nil {
		bc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBorrowing(*bw, bc.Repo.Now()))
}

// GET /api/borrowings/current
func (bc *BorrowingController) Current(c *gin.Context) {
	bc.list(c, bc.Repo.CurrentBorrowings)
}

// GET /api/borrowings/history
func (bc *BorrowingController) History(c *gin.Context) {
	bc.list(c, bc.Repo.BorrowingHistory)
}

// GET /api/borrowings/overdue（仅管理员）
func (bc *BorrowingController) Overdue(c *gin.Context) {
	bc.list(c, bc.Repo.OverdueBorrowings)
}

// GET /api/borrowings/all_records（仅管理员）
func (bc *BorrowingController) AllRecords(c *gin.Context) {
	bc.list(c, bc.Repo.AllBorrowings)
}

func (bc *BorrowingController) list(c *gin.Context, load func(ctx context.Context, u *models.User) ([]models.Borrowing, error)) {
	list, err := load(c.Request.Context(), app.CurrentUser(c))
	if err != nil {
		bc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"count": len(list), "results": bc.views(list)})
}
