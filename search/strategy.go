package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"Gin_postgres_redis_book_catalog/models"
)

const DefaultThreshold = 0.3

// Strategy 一种检索方式；SQL 与内存两种形式语义一致
type Strategy interface {
	Mode() Capability
	// Filter 追加检索条件，term 已去除首尾空白且非空
	Filter(ds *goqu.SelectDataset, term string) *goqu.SelectDataset
	// Scores 追加 combined_similarity / rank 两列
	Scores(term string) []interface{}
	// Relevance 未指定排序时的默认顺序
	Relevance() []exp.OrderedExpression
	Match(corpus []models.Book, term string) []Hit
}

// Hit 一条结果及其得分；basic 模式得分恒为 0
type Hit struct {
	models.Book
	Similarity float64 `db:"combined_similarity" json:"-"`
	Rank       float64 `db:"rank" json:"-"`
}

func NewStrategy(c Capability, threshold float64) Strategy {
	if c == Ranked {
		return &RankedStrategy{Threshold: threshold}
	}
	return BasicStrategy{}
}

type weightedField struct {
	column string
	weight float64
	get    func(models.Book) string
}

// 字段权重
var similarityFields = []weightedField{
	{"title", 1.5, func(b models.Book) string { return b.Title }},
	{"genre", 1.5, func(b models.Book) string { return b.Genre }},
	{"author", 1.3, func(b models.Book) string { return b.Author }},
	{"isbn", 1.2, func(b models.Book) string { return b.ISBN }},
	{"description", 0.8, func(b models.Book) string { return b.Description }},
}

// basic 模式匹配的字段
var substringFields = []string{"title", "author", "isbn", "genre", "description"}

// ranked 模式下直接子串命中也算入选的字段
var rankedSubstringFields = []string{"title", "author", "isbn"}

var naturalOrder = []exp.OrderedExpression{
	goqu.C("created_at").Desc(),
	goqu.C("id").Desc(),
}

// BasicStrategy 大小写不敏感子串匹配
type BasicStrategy struct{}

func (BasicStrategy) Mode() Capability { return Basic }

func (BasicStrategy) Filter(ds *goqu.SelectDataset, term string) *goqu.SelectDataset {
	return ds.Where(anyContains(substringFields, term))
}

func (BasicStrategy) Scores(string) []interface{} {
	return []interface{}{
		goqu.L("0.0").As("combined_similarity"),
		goqu.L("0.0").As("rank"),
	}
}

func (BasicStrategy) Relevance() []exp.OrderedExpression { return naturalOrder }

func (BasicStrategy) Match(corpus []models.Book, term string) []Hit {
	needle := strings.ToLower(term)
	out := make([]Hit, 0, len(corpus))
	for _, b := range corpus {
		for _, f := range similarityFields {
			if strings.Contains(strings.ToLower(f.get(b)), needle) {
				out = append(out, Hit{Book: b})
				break
			}
		}
	}
	return out
}

// RankedStrategy 三元组相似度 + 词法 rank
type RankedStrategy struct {
	Threshold float64
}

func (*RankedStrategy) Mode() Capability { return Ranked }

func (s *RankedStrategy) Filter(ds *goqu.SelectDataset, term string) *goqu.SelectDataset {
	conds := []exp.Expression{
		goqu.L("? >= ?", combinedSimilarity(term), s.Threshold),
		goqu.L("search_vector @@ plainto_tsquery('english', ?)", term),
	}
	for _, col := range rankedSubstringFields {
		conds = append(conds, containsExpr(col, term))
	}
	return ds.Where(goqu.Or(conds...))
}

func (*RankedStrategy) Scores(term string) []interface{} {
	return []interface{}{
		combinedSimilarity(term).As("combined_similarity"),
		goqu.L("COALESCE(ts_rank(search_vector, plainto_tsquery('english', ?)), 0)", term).As("rank"),
	}
}

func (*RankedStrategy) Relevance() []exp.OrderedExpression {
	return []exp.OrderedExpression{
		goqu.I("combined_similarity").Desc(),
		goqu.I("rank").Desc(),
		goqu.C("id").Asc(),
	}
}

func (s *RankedStrategy) Match(corpus []models.Book, term string) []Hit {
	needle := strings.ToLower(term)
	out := make([]Hit, 0, len(corpus))
	for _, b := range corpus {
		h := Hit{Book: b}
		for _, f := range similarityFields {
			if v := Similarity(f.get(b), term) * f.weight; v > h.Similarity {
				h.Similarity = v
			}
		}
		h.Rank = lexicalRank(b, term)

		keep := h.Similarity >= s.Threshold || h.Rank > 0
		if !keep {
			for _, v := range []string{b.Title, b.Author, b.ISBN} {
				if strings.Contains(strings.ToLower(v), needle) {
					keep = true
					break
				}
			}
		}
		if keep {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Rank > out[j].Rank
	})
	return out
}

// combinedSimilarity GREATEST(similarity(col, term) * weight, ...)
func combinedSimilarity(term string) exp.LiteralExpression {
	parts := make([]string, 0, len(similarityFields))
	args := make([]interface{}, 0, len(similarityFields))
	for _, f := range similarityFields {
		parts = append(parts, fmt.Sprintf("similarity(COALESCE(%s, ''), ?) * %.1f", f.column, f.weight))
		args = append(args, term)
	}
	return goqu.L("GREATEST("+strings.Join(parts, ", ")+")", args...)
}

// containsExpr 两侧都交给引擎 LOWER，大小写折叠规则一致（SQLite 只折叠 ASCII）
func containsExpr(column, term string) exp.Expression {
	return goqu.L(fmt.Sprintf(`LOWER(COALESCE(%s, '')) LIKE LOWER(?) ESCAPE '\'`, column), likePattern(term))
}

func anyContains(columns []string, term string) exp.Expression {
	conds := make([]exp.Expression, 0, len(columns))
	for _, col := range columns {
		conds = append(conds, containsExpr(col, term))
	}
	return goqu.Or(conds...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// ts_rank 默认权重 {D, C, B, A} = {0.1, 0.2, 0.4, 1.0}
var lexicalWeights = []struct {
	weight float64
	get    func(models.Book) string
}{
	{1.0, func(b models.Book) string { return b.Title }},
	{0.4, func(b models.Book) string { return b.Author }},
	{0.2, func(b models.Book) string { return b.Genre + " " + b.ISBN }},
	{0.1, func(b models.Book) string { return b.Description }},
}

// lexicalRank 近似 plainto_tsquery 的 AND 语义：所有词都出现才有分
func lexicalRank(b models.Book, term string) float64 {
	terms := words(term)
	if len(terms) == 0 {
		return 0
	}
	docs := make([]map[string]struct{}, len(lexicalWeights))
	for i, lw := range lexicalWeights {
		set := make(map[string]struct{})
		for _, w := range words(lw.get(b)) {
			set[w] = struct{}{}
		}
		docs[i] = set
	}

	var total float64
	for _, t := range terms {
		best := 0.0
		for i, lw := range lexicalWeights {
			if _, ok := docs[i][t]; ok && lw.weight > best {
				best = lw.weight
			}
		}
		if best == 0 {
			return 0
		}
		total += best
	}
	return total / float64(len(terms))
}
