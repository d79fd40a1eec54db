package pagination

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/citygarden/pkg/query"
)

// PageRequest is a normalized request for one page of results.
type PageRequest struct {
	Page     int
	PageSize int
	Search   *string
	Sort     []query.SortField
}

// FromQuery reads page, page_size, search, and sort from URL query values
// and clamps them to cfg.
func FromQuery(values url.Values, cfg Config) PageRequest {
	page, _ := strconv.Atoi(values.Get("page"))
	size, _ := strconv.Atoi(values.Get("page_size"))

	req := PageRequest{
		Page:     max(page, 1),
		PageSize: size,
		Sort:     query.ParseSortFields(values.Get("sort")),
	}
	if s := values.Get("search"); s != "" {
		req.Search = &s
	}

	switch {
	case req.PageSize < 1:
		req.PageSize = cfg.DefaultPageSize
	case req.PageSize > cfg.MaxPageSize:
		req.PageSize = cfg.MaxPageSize
	}
	return req
}

// PageResult holds a page of data along with pagination metadata.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult creates a PageResult. TotalPages is at least 1 and Data is
// never nil.
func NewPageResult[T any](data []T, total int, req PageRequest) PageResult[T] {
	pages := 1
	if req.PageSize > 0 && total > 0 {
		pages = (total + req.PageSize - 1) / req.PageSize
	}
	if data == nil {
		data = []T{}
	}

	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: pages,
	}
}
