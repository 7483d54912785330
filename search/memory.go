package search

import (
	"strings"

	"Gin_postgres_redis_book_catalog/models"
)

// Resolve 在内存语料上执行与 Resolver 相同的检索语义。
// 空查询原样返回；basic 保持语料顺序，ranked 按 similarity、rank 降序。
func Resolve(corpus []models.Book, query string, c Capability) []models.Book {
	return ResolveWith(NewStrategy(c, DefaultThreshold), corpus, query)
}

func ResolveWith(s Strategy, corpus []models.Book, query string) []models.Book {
	term := strings.TrimSpace(query)
	if term == "" {
		out := make([]models.Book, len(corpus))
		copy(out, corpus)
		return out
	}
	hits := s.Match(corpus, term)
	out := make([]models.Book, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Book)
	}
	return out
}
