package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"gorm.io/gorm"

	"Gin_postgres_redis_book_catalog/models"
)

// vectorExpr books.search_vector 的计算方式：title A, author B, genre+isbn C, description D
const vectorExpr = `setweight(to_tsvector('english', COALESCE(title, '')), 'A') || ` +
	`setweight(to_tsvector('english', COALESCE(author, '')), 'B') || ` +
	`setweight(to_tsvector('english', COALESCE(genre, '') || ' ' || COALESCE(isbn, '')), 'C') || ` +
	`setweight(to_tsvector('english', COALESCE(description, '')), 'D')`

// EnsureSchema 仅 postgres：安装 pg_trgm、添加 search_vector 列与索引并回填。
// 扩展装不上时只记录日志，Probe 会判定为 Basic。
func EnsureSchema(ctx context.Context, gdb *gorm.DB, logger *slog.Logger) error {
	if gdb.Dialector.Name() != "postgres" {
		logger.InfoContext(ctx, "search schema skipped", slog.String("engine", gdb.Dialector.Name()))
		return nil
	}
	db := gdb.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS " + trigramExtension).Error; err != nil {
		logger.WarnContext(ctx, "pg_trgm unavailable, ranked search disabled", slog.Any("error", err))
		return nil
	}

	t := models.BookTable
	stmts := []string{
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s tsvector`, t, searchVectorColumn),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_search_vector_idx ON %s USING GIN (%s)`, t, t, searchVectorColumn),
	}
	for _, col := range []string{"title", "author", "genre", "isbn"} {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_%s_trgm_idx ON %s USING GIN (%s gin_trgm_ops)`, t, col, t, col))
	}
	stmts = append(stmts, fmt.Sprintf(`UPDATE %s SET %s = %s WHERE %s IS NULL`, t, searchVectorColumn, vectorExpr, searchVectorColumn))

	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return fmt.Errorf("search schema: %w", err)
		}
	}
	return nil
}

// RefreshVector 书籍写入后刷新 search_vector。
// Basic 能力下是显式的空操作；失败只记录日志和计数，不影响写入本身。
func (r *Resolver) RefreshVector(ctx context.Context, bookID uint) {
	if r.capability != Ranked {
		r.stats.VectorSkips.Add(1)
		r.logger.DebugContext(ctx, "search vector maintenance skipped",
			slog.Uint64("book_id", uint64(bookID)),
			slog.String("capability", r.capability.String()),
		)
		return
	}

	sql, args, err := r.dialect.Update(models.BookTable).Prepared(true).
		Set(goqu.Record{searchVectorColumn: goqu.L(vectorExpr)}).
		Where(goqu.C("id").Eq(bookID)).
		ToSQL()
	if err == nil {
		_, err = r.db.ExecContext(ctx, sql, args...)
	}
	if err != nil {
		r.stats.VectorFailures.Add(1)
		r.logger.WarnContext(ctx, "search vector maintenance failed",
			slog.Uint64("book_id", uint64(bookID)),
			slog.Any("error", err),
		)
		return
	}
	r.stats.VectorRefresh.Add(1)
}
