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

// Params are the page/limit query parameters of a list endpoint.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Meta is the pagination block of a list response.
type Meta struct {
	CurrentPage  int  `json:"current_page"`
	PerPage      int  `json:"per_page"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// Page is the standard list response body.
type Page[T any] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}

// ParseParams reads page and limit from the query string. Invalid values fall back to defaults.
func ParseParams(r *http.Request) Params {
	q := r.URL.Query()
	p := Params{
		Page:  positiveInt(q.Get("page"), DefaultPage),
		Limit: positiveInt(q.Get("limit"), DefaultLimit),
	}
	p.Validate()
	return p
}

func positiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Validate clamps parameters into range.
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

// CalculateOffset returns the SQL OFFSET for the page.
func (p *Params) CalculateOffset() int {
	return (p.Page - 1) * p.Limit
}

func (p *Params) CalculateMeta(totalRecords int) Meta {
	totalPages := (totalRecords + p.Limit - 1) / p.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		HasNext:      p.Page < totalPages,
		HasPrevious:  p.Page > 1,
	}
}

// NewPage builds a list response. A nil slice is rendered as [].
func NewPage[T any](items []T, p Params, totalRecords int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Data: items, Pagination: p.CalculateMeta(totalRecords)}
}
