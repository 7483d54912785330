package routes

import (
	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_book_catalog/app"
	"Gin_postgres_redis_book_catalog/controllers"
	"Gin_postgres_redis_book_catalog/policy"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	bookCtl := controllers.NewBookController(s)
	borrowCtl := controllers.NewBorrowingController(s)
	ratingCtl := controllers.NewRatingController(s)
	uc := controllers.NewUserController(s)

	// 复用的中间件
	authnMW := app.Authenticate(s.Sessions, s.Repo, a.Config.JWTSecret)
	authMW := app.AuthRequired()
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, a.Config.LastSeenThrottle, a.Log)

	r.GET("/healthz", s.Health)

	api := r.Group("/api", authnMW, seenMW)

	// ------------------------------
	// 书目：公开读，管理员写
	// ------------------------------
	books := api.Group("/books")
	{
		books.GET("", bookCtl.ListBooks)
		books.GET("/:id", bookCtl.GetBook)
		books.POST("", app.Authorize(policy.ActionCreate, policy.KindBook), bookCtl.CreateBook)
		books.PUT("/:id", app.Authorize(policy.ActionUpdate, policy.KindBook), bookCtl.UpdateBook)
		books.PATCH("/:id", app.Authorize(policy.ActionUpdate, policy.KindBook), bookCtl.UpdateBook)
	}

	// ------------------------------
	// 借还
	// ------------------------------
	borrowings := api.Group("/borrowings", authMW)
	{
		borrowings.POST("/checkout", borrowCtl.Checkout)
		borrowings.POST("/:id/checkin", app.Authorize(policy.ActionCheckin, policy.KindBorrowing), borrowCtl.Checkin)

		borrowings.GET("", borrowCtl.ListBorrowings) // ?status=active|returned|overdue&user_id=&book_id=
		borrowings.GET("/current", borrowCtl.Current)
		borrowings.GET("/history", borrowCtl.History)
		borrowings.GET("/overdue", borrowCtl.Overdue)
		borrowings.GET("/all_records", borrowCtl.AllRecords)
		borrowings.GET("/:id", borrowCtl.GetBorrowing)
	}

	// ------------------------------
	// 评分：公开读，登录写，本人/管理员改删
	// ------------------------------
	ratings := api.Group("/ratings")
	{
		ratings.GET("", ratingCtl.ListRatings)
		ratings.GET("/my_ratings", authMW, ratingCtl.MyRatings)
		ratings.GET("/:id", ratingCtl.GetRating)
		ratings.POST("", authMW, ratingCtl.CreateRating)
		ratings.PUT("/:id", authMW, ratingCtl.UpdateRating)
		ratings.PATCH("/:id", authMW, ratingCtl.UpdateRating)
		ratings.DELETE("/:id", authMW, ratingCtl.DeleteRating)
	}

	// ------------------------------
	// 当前用户
	// ------------------------------
	auth := api.Group("/auth", authMW)
	{
		auth.GET("/me", uc.Me)
		auth.POST("/logout", uc.Logout)
	}

	// ------------------------------
	// 用户管理 / 审计（仅管理员）
	// ------------------------------
	adminMW := app.Authorize(policy.ActionList, policy.KindUser)
	users := api.Group("/users", adminMW)
	{
		users.GET("", uc.ListUsers) // ?q=&page=&size=
		users.GET("/:id", uc.GetUser)
		users.PUT("/:id/roles", uc.SetRoles)
	}
	api.GET("/audit", adminMW, uc.ListAudit)
}
