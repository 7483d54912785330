// controllers/rating_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_book_catalog/app"
	"Gin_postgres_redis_book_catalog/db"
	"Gin_postgres_redis_book_catalog/models"
)

type RatingController struct{ *Srv }

func NewRatingController(s *Srv) *RatingController { return &RatingController{Srv: s} }

type ratingView struct {
	models.BookRating
	UserEmail string `json:"user_email"`
	BookTitle string `json:"book_title"`
}

func viewRating(r models.BookRating) ratingView {
	v := ratingView{BookRating: r}
	if r.User != nil {
		v.UserEmail = r.User.Email
	}
	if r.Book != nil {
		v.BookTitle = r.Book.Title
	}
	return v
}

func viewRatings(list []models.BookRating) []ratingView {
	out := make([]ratingView, 0, len(list))
	for _, r := range list {
		out = append(out, viewRating(r))
	}
	return out
}

type ratingPayload struct {
	BookID  uint    `json:"book_id"`
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

// GET /api/ratings?book_id=
func (rc *RatingController) ListRatings(c *gin.Context) {
	bookID, err := optUintQuery(c, "book_id")
	if err != nil {
		rc.respondError(c, err)
		return
	}
	list, err := rc.Repo.ListRatings(c.Request.Context(), bookID)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"count": len(list), "results": viewRatings(list)})
}

// GET /api/ratings/my_ratings
func (rc *RatingController) MyRatings(c *gin.Context) {
	list, err := rc.Repo.ListRatingsByUser(c.Request.Context(), app.CurrentUser(c))
	if err != nil {
		rc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"count": len(list), "results": viewRatings(list)})
}

// GET /api/ratings/:id
func (rc *RatingController) GetRating(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		rc.respondError(c, err)
		return
	}
	br, err := rc.Repo.FindRating(c.Request.Context(), id)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewRating(*br))
}

// POST /api/ratings {book_id, rating, comment?}
func (rc *RatingController) CreateRating(c *gin.Context) {
	var p ratingPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	br, err := rc.Repo.CreateRating(c.Request.Context(), app.CurrentUser(c), db.RatingInput{
		BookID: p.BookID, Rating: p.Rating, Comment: p.Comment,
	})
	if err != nil {
		rc.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewRating(*br))
}

// PUT 需要 rating；PATCH 只改给出的字段。book_id 不可改。
func (rc *RatingController) UpdateRating(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		rc.respondError(c, err)
		return
	}
	var p ratingPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}
	if c.Request.Method == http.MethodPut && p.Rating == nil {
		rc.respondError(c, &db.ValidationError{Field: "rating", Message: "this field is required"})
		return
	}
	br, err := rc.Repo.UpdateRating(c.Request.Context(), app.CurrentUser(c), id, db.RatingInput{
		Rating: p.Rating, Comment: p.Comment,
	})
	if err != nil {
		rc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewRating(*br))
}

// DELETE /api/ratings/:id
func (rc *RatingController) DeleteRating(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		rc.respondError(c, err)
		return
	}
	if err := rc.Repo.DeleteRating(c.Request.Context(), app.CurrentUser(c), id); err != nil {
		rc.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
