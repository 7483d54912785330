package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"Gin_postgres_redis_book_catalog/cache"
	"Gin_postgres_redis_book_catalog/config"
	"Gin_postgres_redis_book_catalog/db"
	"Gin_postgres_redis_book_catalog/events"
	"Gin_postgres_redis_book_catalog/search"
	"Gin_postgres_redis_book_catalog/session"
)

// 简化别名，便于 handlers 调用
type H = gin.H

// App 聚合各依赖；RDB 为 nil 时会话、last-seen 节流、列表缓存都不启用
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Config config.Config
	Log    *slog.Logger

	Repo   *db.Repo
	Search *search.Resolver
	Events events.Publisher
	Cache  *cache.Catalog

	// Sessions 为 nil 时 Cookie 会话不生效；需在 RegisterRoutes 之前设置
	Sessions session.Store
}

// New 组装 App；数据库已迁移，rdb / pub 可为 nil
func New(ctx context.Context, cfg config.Config, gdb *gorm.DB, rdb *redis.Client, pub events.Publisher, logger *slog.Logger) (*App, error) {
	resolver, err := search.FromGorm(ctx, gdb,
		search.WithLogger(logger),
		search.WithThreshold(cfg.SearchThreshold),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("search capability detected", slog.String("capability", resolver.Capability().String()))

	repo := db.NewRepo(gdb)
	if cfg.LoanPeriod > 0 {
		repo.LoanPeriod = cfg.LoanPeriod
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), SecurityHeaders())
	useCORS(r, cfg.WebOrigin)

	a := &App{
		Router: r, DB: gdb, RDB: rdb, Config: cfg, Log: logger,
		Repo:   repo,
		Search: resolver,
		Events: pub,
		Cache:  cache.NewCatalog(rdb, cfg.CatalogCacheTTL),
	}
	if rdb != nil {
		a.Sessions = session.NewAppSessionStore(rdb, cfg.SessionTTL)
	}
	return a, nil
}

func MustNew() *App {
	cfg := config.Load()
	logger := NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// --- DB ---
	gdb, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := db.Migrate(ctx, gdb, logger); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// --- Redis ---
	rdb := newRedis(ctx, cfg, logger)

	// --- RabbitMQ ---
	var pub events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub = events.NewAMQPPublisher(cfg.AMQPURL, logger)
	}

	a, err := New(ctx, cfg, gdb, rdb, pub, logger)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	Bootstrap(ctx, cfg, a.Repo, logger)
	return a
}

// newRedis 连不上只告警，相关功能降级
func newRedis(ctx context.Context, cfg config.Config, logger *slog.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("redis disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: cfg.RedisDB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, sessions and cache disabled", slog.Any("error", err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func (a *App) Close() {
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	if a.Events != nil {
		_ = a.Events.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (a *App) Run() error {
	addr := fmt.Sprintf(":%s", a.Config.Port)
	a.Log.Info("listening", slog.String("addr", addr))
	return a.Router.Run(addr)
}
