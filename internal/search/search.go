// Package search turns query-string filters into conjunctive SQL predicates.
package search

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Pagination is returned next to every list response.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func (p Page) Result(total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return Pagination{Total: total, Page: p.Page, Limit: p.Limit, Pages: pages}
}

// ParsePage reads page and limit, ignoring malformed values.
func ParsePage(q url.Values, defaultLimit int) Page {
	p := Page{Page: DefaultPage, Limit: defaultLimit}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Where accumulates AND-ed predicates with positional arguments.
type Where struct {
	clauses []string
	args    []interface{}
}

// Arg registers a value and returns its placeholder.
func (w *Where) Arg(v interface{}) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// Add appends a predicate. Every "?" in clause is bound to the next value of args.
func (w *Where) Add(clause string, args ...interface{}) {
	for _, a := range args {
		clause = strings.Replace(clause, "?", w.Arg(a), 1)
	}
	w.clauses = append(w.clauses, clause)
}

func (w *Where) Args() []interface{} { return w.args }

// SQL renders "WHERE a AND b", or an empty string when no predicate was added.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.clauses, " AND ")
}

// Contains builds an ILIKE pattern matching s anywhere, with wildcards escaped.
func Contains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

func list(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func ceiling(q url.Values, key string) *float64 {
	v, err := strconv.ParseFloat(q.Get(key), 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func textArray(v []string) interface{} { return pq.Array(v) }
