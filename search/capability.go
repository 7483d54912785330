package search

import (
	"context"

	"gorm.io/gorm"

	"Gin_postgres_redis_book_catalog/models"
)

// Capability 存储能否做三元组相似度排序
type Capability int

const (
	Basic Capability = iota
	Ranked
)

func (c Capability) String() string {
	if c == Ranked {
		return "ranked"
	}
	return "basic"
}

const (
	trigramExtension   = "pg_trgm"
	searchVectorColumn = "search_vector"
)

// Probe 引擎是 postgres、pg_trgm 已安装、books.search_vector 存在，三者皆满足才是 Ranked
func Probe(ctx context.Context, gdb *gorm.DB) Capability {
	if gdb.Dialector.Name() != "postgres" {
		return Basic
	}
	var n int64
	if err := gdb.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM pg_extension WHERE extname = ?", trigramExtension).
		Scan(&n).Error; err != nil || n == 0 {
		return Basic
	}
	if !gdb.WithContext(ctx).Migrator().HasColumn(models.BookTable, searchVectorColumn) {
		return Basic
	}
	return Ranked
}
