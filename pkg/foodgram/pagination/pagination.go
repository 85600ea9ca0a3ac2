// Package pagination implements page/limit pagination with a
// {count, next, previous, results} envelope.
package pagination

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// PageParam is the 1-based page number query parameter
	PageParam = "page"
	// LimitParam is the page size query parameter
	LimitParam = "limit"
)

// Paginator holds the page size bounds
type Paginator struct {
	DefaultSize int
	MaxSize     int
}

// New returns a paginator. Non-positive values fall back to 6 and 100.
func New(defaultSize, maxSize int) Paginator {
	if defaultSize <= 0 {
		defaultSize = 6
	}
	if maxSize < defaultSize {
		maxSize = 100
		if maxSize < defaultSize {
			maxSize = defaultSize
		}
	}
	return Paginator{DefaultSize: defaultSize, MaxSize: maxSize}
}

// Params is a parsed page request
type Params struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Scope applies LIMIT and OFFSET to a query
func (p Params) Scope(db *gorm.DB) *gorm.DB {
	return db.Limit(p.Limit).Offset(p.Offset())
}

// Parse reads page and limit from the query string. Invalid values fall back
// to the first page and the default size; limit is capped at MaxSize.
func (pg Paginator) Parse(c *gin.Context) Params {
	p := Params{Page: 1, Limit: pg.DefaultSize}

	if v, err := strconv.Atoi(c.Query(PageParam)); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query(LimitParam)); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > pg.MaxSize {
		p.Limit = pg.MaxSize
	}
	return p
}

// Page is the paginated response envelope
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewPage builds the envelope for results of the page described by p.
// Next and previous links keep the rest of the request's query string.
func NewPage[T any](c *gin.Context, p Params, count int64, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}

	if int64(p.Page*p.Limit) < count {
		next := pageURL(c, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(c, p.Page-1)
		page.Previous = &prev
	}
	return page
}

func pageURL(c *gin.Context, page int) string {
	u := url.URL{
		Scheme: "http",
		Host:   c.Request.Host,
		Path:   c.Request.URL.Path,
	}
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}

	q := c.Request.URL.Query()
	if page == 1 {
		q.Del(PageParam)
	} else {
		q.Set(PageParam, strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
