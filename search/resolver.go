package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"Gin_postgres_redis_book_catalog/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var ErrInvalidOrdering = errors.New("invalid ordering")

// Query 列表/搜索参数
type Query struct {
	Term        string
	Title       string
	Author      string
	Genre       string
	ISBN        string
	IsAvailable *bool
	Ordering    string
	Page        int
	PageSize    int
}

type Result struct {
	Hits       []Hit
	Count      int64
	Page       int
	PageSize   int
	TotalPages int
	Mode       Capability
}

func (r *Result) Books() []models.Book {
	out := make([]models.Book, 0, len(r.Hits))
	for _, h := range r.Hits {
		out = append(out, h.Book)
	}
	return out
}

var orderings = map[string]exp.OrderedExpression{
	"title_asc":           goqu.C("title").Asc(),
	"title_desc":          goqu.C("title").Desc(),
	"author_asc":          goqu.C("author").Asc(),
	"author_desc":         goqu.C("author").Desc(),
	"created_at_asc":      goqu.C("created_at").Asc(),
	"created_at_desc":     goqu.C("created_at").Desc(),
	"published_date_asc":  goqu.C("published_date").Asc(),
	"published_date_desc": goqu.C("published_date").Desc(),
}

func ValidOrdering(o string) bool {
	if o == "" {
		return true
	}
	_, ok := orderings[o]
	return ok
}

// Stats 进程内计数
type Stats struct {
	BasicQueries   atomic.Int64
	RankedQueries  atomic.Int64
	Fallbacks      atomic.Int64
	VectorRefresh  atomic.Int64
	VectorSkips    atomic.Int64
	VectorFailures atomic.Int64
}

func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"basic_queries":   s.BasicQueries.Load(),
		"ranked_queries":  s.RankedQueries.Load(),
		"fallbacks":       s.Fallbacks.Load(),
		"vector_refresh":  s.VectorRefresh.Load(),
		"vector_skips":    s.VectorSkips.Load(),
		"vector_failures": s.VectorFailures.Load(),
	}
}

// Resolver 基于存储的检索；能力在构造时确定一次
type Resolver struct {
	db         *sqlx.DB
	dialect    goqu.DialectWrapper
	capability Capability
	threshold  float64
	strategy   Strategy
	basic      Strategy
	logger     *slog.Logger
	stats      *Stats
}

type Option func(*Resolver)

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func WithThreshold(t float64) Option {
	return func(r *Resolver) {
		if t > 0 {
			r.threshold = t
		}
	}
}

// WithStrategy 覆盖按能力选择的策略
func WithStrategy(s Strategy) Option {
	return func(r *Resolver) { r.strategy = s }
}

// NewResolver dialect 为 goqu 方言名：postgres / sqlite3
func NewResolver(db *sqlx.DB, dialect string, c Capability, opts ...Option) *Resolver {
	r := &Resolver{
		db:         db,
		dialect:    goqu.Dialect(dialect),
		capability: c,
		threshold:  DefaultThreshold,
		basic:      BasicStrategy{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		stats:      &Stats{},
	}
	for _, o := range opts {
		o(r)
	}
	if r.strategy == nil {
		r.strategy = NewStrategy(c, r.threshold)
	}
	return r
}

// FromGorm 探测能力并复用 gorm 的连接池
func FromGorm(ctx context.Context, gdb *gorm.DB, opts ...Option) (*Resolver, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("search: underlying sql.DB: %w", err)
	}
	driver, dialect := "sqlite3", "sqlite3"
	if gdb.Dialector.Name() == "postgres" {
		driver, dialect = "pgx", "postgres"
	}
	return NewResolver(sqlx.NewDb(sqlDB, driver), dialect, Probe(ctx, gdb), opts...), nil
}

func (r *Resolver) Capability() Capability { return r.capability }

func (r *Resolver) Stats() *Stats { return r.stats }

// Search ranked 失败时本次降级为 basic，错误不返回给调用方
func (r *Resolver) Search(ctx context.Context, q Query) (*Result, error) {
	if !ValidOrdering(q.Ordering) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrdering, q.Ordering)
	}
	q = normalize(q)

	res, err := r.run(ctx, r.strategy, q)
	if err == nil || r.strategy.Mode() == Basic {
		return res, err
	}

	r.stats.Fallbacks.Add(1)
	r.logger.WarnContext(ctx, "ranked search failed, falling back to basic",
		slog.String("term", q.Term),
		slog.Any("error", err),
	)
	return r.run(ctx, r.basic, q)
}

func normalize(q Query) Query {
	q.Term = strings.TrimSpace(q.Term)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

func (r *Resolver) run(ctx context.Context, s Strategy, q Query) (*Result, error) {
	ds := r.dialect.From(models.BookTable).Prepared(true)
	ds = applyFilters(ds, q)
	if q.Term != "" {
		ds = s.Filter(ds, q.Term)
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("search: build count: %w", err)
	}
	var count int64
	if err := r.db.GetContext(ctx, &count, countSQL, countArgs...); err != nil {
		return nil, fmt.Errorf("search: count (%s): %w", s.Mode(), err)
	}

	totalPages := (count + int64(q.PageSize) - 1) / int64(q.PageSize)
	hits := []Hit{}
	// 超出末页直接返回空页，(Page-1)*PageSize 也不会溢出
	if int64(q.Page-1) >= totalPages {
		return r.result(s, q, hits, count, totalPages), nil
	}

	cols := make([]interface{}, 0, len(models.BookColumns)+2)
	for _, c := range models.BookColumns {
		cols = append(cols, goqu.C(c))
	}
	scorer := s
	if q.Term == "" {
		scorer = r.basic
	}
	cols = append(cols, scorer.Scores(q.Term)...)

	listDS := ds.Select(cols...).
		Order(r.order(s, q)...).
		Limit(uint(q.PageSize)).
		Offset(uint((q.Page - 1) * q.PageSize))
	listSQL, listArgs, err := listDS.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("search: build list: %w", err)
	}

	if err := r.db.SelectContext(ctx, &hits, listSQL, listArgs...); err != nil {
		return nil, fmt.Errorf("search: list (%s): %w", s.Mode(), err)
	}
	return r.result(s, q, hits, count, totalPages), nil
}

func (r *Resolver) result(s Strategy, q Query, hits []Hit, count, totalPages int64) *Result {
	if s.Mode() == Ranked {
		r.stats.RankedQueries.Add(1)
	} else {
		r.stats.BasicQueries.Add(1)
	}
	return &Result{
		Hits:       hits,
		Count:      count,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int(totalPages),
		Mode:       s.Mode(),
	}
}

// order 显式排序优先；否则有检索词用策略的相关度，没有则按创建时间倒序
func (r *Resolver) order(s Strategy, q Query) []exp.OrderedExpression {
	if o, ok := orderings[q.Ordering]; ok {
		return []exp.OrderedExpression{o, goqu.C("id").Asc()}
	}
	if q.Term != "" {
		return s.Relevance()
	}
	return naturalOrder
}

func applyFilters(ds *goqu.SelectDataset, q Query) *goqu.SelectDataset {
	for _, f := range []struct{ col, v string }{{"title", q.Title}, {"author", q.Author}, {"genre", q.Genre}} {
		if v := strings.TrimSpace(f.v); v != "" {
			ds = ds.Where(containsExpr(f.col, v))
		}
	}
	if v := strings.TrimSpace(q.ISBN); v != "" {
		ds = ds.Where(goqu.C("isbn").Eq(v))
	}
	if q.IsAvailable != nil {
		ds = ds.Where(goqu.C("is_available").Eq(*q.IsAvailable))
	}
	return ds
}
