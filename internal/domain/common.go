package domain

import (
	"errors"
	"math"
)

var ErrNotFound = errors.New("resource not found")

// ErrStale is returned by conditional writes whose expected state no longer holds.
var ErrStale = errors.New("resource was modified concurrently")

// PaginatedResult for list responses
type PaginatedResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// Page is a normalized page request.
type Page struct {
	Page     int
	PageSize int
}

const maxPageSize = 100

func NewPage(page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return Page{Page: page, PageSize: pageSize}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func NewPaginatedResult[T any](data []T, total int64, p Page) *PaginatedResult[T] {
	if data == nil {
		data = []T{}
	}
	return &PaginatedResult[T]{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(p.PageSize))),
	}
}
