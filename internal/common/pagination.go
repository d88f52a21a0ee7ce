package common

import (
	"net/url"
	"strconv"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page Page, total int) Pagination {
	pages := 0
	if page.Limit > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}
	return Pagination{Page: page.Page, Limit: page.Limit, Total: total, TotalPages: pages}
}

// ParsePage reads page/limit query values; malformed values fall back to defaults.
func ParsePage(values url.Values) Page {
	page := Page{Page: 1, Limit: DefaultPageLimit}
	if value := values.Get("page"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			page.Page = parsed
		}
	}
	if value := values.Get("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			page.Limit = parsed
		}
	}
	if page.Limit > MaxPageLimit {
		page.Limit = MaxPageLimit
	}
	return page
}
