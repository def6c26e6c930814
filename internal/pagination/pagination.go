// Package pagination parses page/limit query parameters and reports totals
// in response headers, leaving list bodies as plain JSON arrays.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a 1-based page and a page size.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Meta describes where a page sits in the full result set.
type Meta struct {
	CurrentPage  int
	PerPage      int
	TotalPages   int
	TotalRecords int
}

// Requested reports whether the client asked for a paginated listing.
func Requested(r *http.Request) bool {
	q := r.URL.Query()
	return q.Has("page") || q.Has("limit")
}

// ParseParams reads page and limit, ignoring malformed values.
func ParseParams(r *http.Request) Params {
	p := Params{Page: DefaultPage, Limit: DefaultLimit}
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		p.Limit = n
	}
	p.Validate()
	return p
}

// Validate clamps the params into range.
func (p *Params) Validate() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

func (p *Params) CalculateOffset() int {
	return (p.Page - 1) * p.Limit
}

func (p *Params) CalculateMeta(totalRecords int) Meta {
	pages := (totalRecords + p.Limit - 1) / p.Limit
	if pages < 1 {
		pages = 1
	}
	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   pages,
		TotalRecords: totalRecords,
	}
}

// SetHeaders writes X-Total-Count and, for a paginated listing, the page headers.
func SetHeaders(w http.ResponseWriter, total int, page *Params) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	if page == nil {
		return
	}
	meta := page.CalculateMeta(total)
	w.Header().Set("X-Total-Pages", strconv.Itoa(meta.TotalPages))
	w.Header().Set("X-Current-Page", strconv.Itoa(meta.CurrentPage))
	w.Header().Set("X-Per-Page", strconv.Itoa(meta.PerPage))
}
